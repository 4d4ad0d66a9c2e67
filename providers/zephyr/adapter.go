package zephyr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for Zephyr
// Scale on top of the Resilient HTTP Client and Mapper.
type Adapter struct {
	client *httpclient.Client
	mapper Mapper
}

// New builds a Zephyr Scale Adapter. fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6), canonical key to
// vendor custom-field key.
func New(client *httpclient.Client, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "zephyr" }
func (a *Adapter) Name() string    { return "Zephyr Scale" }
func (a *Adapter) Version() string { return "v1" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              true,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase, canonical.EntityTestCycle, canonical.EntityTestExecution},
		SupportsAttachments:      true,
		SupportsExecutionHistory: true,
		SupportsTestSteps:        true,
		SupportsHierarchy:        true,
		SupportsCustomFields:     true,
	}
}

// Initialize has nothing to set up beyond what New already wired; it
// exists only to satisfy contract.Base.
func (a *Adapter) Initialize(ctx context.Context) error {
	return nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.client.Get(ctx, "/healthcheck", nil)
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "Zephyr Scale", Endpoints: []string{"/testcases", "/testcycles", "/testexecutions"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	resp, err := a.client.Get(ctx, "/projects", nil)
	if err != nil {
		return nil, err
	}
	var native struct {
		Values []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			Key  string `json:"key"`
		} `json:"values"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed projects response", err)
	}
	projects := make([]canonical.Project, 0, len(native.Values))
	for _, p := range native.Values {
		projects = append(projects, canonical.Project{ID: strconv.Itoa(p.ID), Name: p.Name, Key: p.Key})
	}
	return projects, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, "/folders", map[string]string{"projectKey": projectID, "folderType": "TEST_CASE"})
	if err != nil {
		return nil, err
	}
	var native struct {
		Values []struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			ParentID int    `json:"parentId"`
		} `json:"values"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed folders response", err)
	}
	folders := make([]canonical.Folder, 0, len(native.Values))
	for _, f := range native.Values {
		folder := canonical.Folder{ID: strconv.Itoa(f.ID), Name: f.Name, Path: f.Name}
		if f.ParentID != 0 {
			folder.ParentID = strconv.Itoa(f.ParentID)
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{"projectKey": projectID}
	if opts.FolderID != "" {
		query["folderId"] = opts.FolderID
	}
	if opts.PageSize > 0 {
		query["maxResults"] = strconv.Itoa(opts.PageSize)
	}
	if opts.StartAt > 0 {
		query["startAt"] = strconv.Itoa(opts.StartAt)
	}

	resp, err := a.client.Get(ctx, "/testcases", query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}

	var native struct {
		Values  []NativeTestCase `json:"values"`
		Total   int              `json:"total"`
		StartAt int              `json:"startAt"`
		MaxResults int           `json:"maxResults"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test cases response", err)
	}

	items := make([]canonical.TestCase, 0, len(native.Values))
	for _, n := range native.Values {
		items = append(items, a.mapper.ToTestCase(n.Key, n))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, "/testcases/"+id, nil)
	if err != nil {
		return canonical.TestCase{}, err
	}
	var native NativeTestCase
	if err := resp.JSON(&native); err != nil {
		return canonical.TestCase{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test case response", err)
	}
	return a.mapper.ToTestCase(id, native), nil
}

func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	resp, err := a.client.Get(ctx, "/testcycles", map[string]string{"projectKey": projectID})
	if err != nil {
		return contract.Page[canonical.TestCycle]{}, err
	}
	var native struct {
		Values []struct {
			Key         string   `json:"key"`
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Status      string   `json:"status"`
			Environment string   `json:"environment"`
			TestCaseKeys []string `json:"testCaseKeys"`
		} `json:"values"`
		Total int `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCycle]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test cycles response", err)
	}
	items := make([]canonical.TestCycle, 0, len(native.Values))
	for _, c := range native.Values {
		items = append(items, canonical.TestCycle{
			ID:          c.Key,
			Name:        c.Name,
			Description: c.Description,
			Status:      canonical.NormalizeStatus(lookupStatus(c.Status)),
			Environment: c.Environment,
			TestCaseIDs: c.TestCaseKeys,
		})
	}
	return contract.Page[canonical.TestCycle]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	resp, err := a.client.Get(ctx, "/testexecutions", map[string]string{"testCycleKey": cycleID})
	if err != nil {
		return contract.Page[canonical.TestExecution]{}, err
	}
	var native struct {
		Values []NativeExecution `json:"values"`
		Total  int               `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestExecution]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test executions response", err)
	}
	items := make([]canonical.TestExecution, 0, len(native.Values))
	for _, n := range native.Values {
		items = append(items, a.mapper.ToExecution(n.Key, n))
	}
	return contract.Page[canonical.TestExecution]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, "/attachments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, "/customfields", map[string]string{"entityType": string(entityType)})
	if err != nil {
		return nil, err
	}
	var native struct {
		Values []struct {
			ID       string   `json:"id"`
			Name     string   `json:"name"`
			Type     string   `json:"type"`
			Required bool     `json:"required"`
			Options  []string `json:"options"`
		} `json:"values"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed field definitions response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native.Values))
	for _, f := range native.Values {
		defs = append(defs, canonical.FieldDefinition{
			ID:            f.ID,
			Name:          f.Name,
			Type:          fieldTypeFromZephyr(f.Type),
			Required:      f.Required,
			AllowedValues: f.Options,
			Entity:        entityType,
		})
	}
	return defs, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	resp, err := a.client.Post(ctx, "/folders", map[string]interface{}{
		"projectKey": projectID, "name": folder.Name, "folderType": "TEST_CASE", "parentId": folder.ParentID,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-folder response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	native := a.mapper.FromTestCase(tc)
	resp, err := a.client.Post(ctx, "/testcases", map[string]interface{}{
		"projectKey": projectID, "name": native.Name, "objective": native.Objective,
		"precondition": native.Precondition, "status": native.Status, "priority": native.Priority,
		"folderId": native.FolderID, "labels": native.Labels, "customFields": native.CustomFields,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-case response", err)
	}
	return created.Key, nil
}

func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	native := a.mapper.FromTestSteps(steps)
	_, err := a.client.Post(ctx, fmt.Sprintf("/testcases/%s/teststeps", testCaseID), map[string]interface{}{"steps": native})
	return err
}

func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	resp, err := a.client.Post(ctx, "/testcycles", map[string]interface{}{
		"projectKey": projectID, "name": cycle.Name, "description": cycle.Description,
		"status": cycle.Status, "environment": cycle.Environment,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-cycle response", err)
	}
	return created.Key, nil
}

func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	natives := make([]NativeExecution, 0, len(execs))
	for _, e := range execs {
		n := a.mapper.FromExecution(e)
		n.CycleKey = cycleID
		natives = append(natives, n)
	}
	_, err := a.client.Post(ctx, "/testexecutions", map[string]interface{}{"executions": natives})
	return err
}

func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/testcases/%s/attachments", entityID), map[string]interface{}{
		"filename": attachment.Filename, "contentType": attachment.ContentType, "content": content,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed upload-attachment response", err)
	}
	return created.ID, nil
}

func (a *Adapter) CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "Zephyr Scale does not support creating custom field definitions via API")
}

func fieldTypeFromZephyr(native string) canonical.FieldType {
	switch native {
	case "text":
		return canonical.FieldTypeText
	case "checkbox":
		return canonical.FieldTypeBoolean
	case "date", "datepicker":
		return canonical.FieldTypeDate
	case "numeric":
		return canonical.FieldTypeNumber
	case "multipleChoice":
		return canonical.FieldTypeEnum
	case "url":
		return canonical.FieldTypeURL
	default:
		return canonical.FieldTypeCustom
	}
}
