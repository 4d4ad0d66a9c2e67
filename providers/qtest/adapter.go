package qtest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for qTest
// Manager on top of the Resilient HTTP Client and Mapper.
type Adapter struct {
	client *httpclient.Client
	mapper Mapper
}

// New builds a qTest Adapter. fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6), canonical key to
// qTest property name.
func New(client *httpclient.Client, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "qtest" }
func (a *Adapter) Name() string    { return "qTest Manager" }
func (a *Adapter) Version() string { return "v3" }

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
	_, err := a.client.Get(ctx, "/api/v3/user-profile", nil)
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "qTest Manager", Endpoints: []string{"/test-cases", "/test-cycles", "/test-runs"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	resp, err := a.client.Get(ctx, "/api/v3/projects", nil)
	if err != nil {
		return nil, err
	}
	var native []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed projects response", err)
	}
	projects := make([]canonical.Project, 0, len(native))
	for _, p := range native {
		projects = append(projects, canonical.Project{ID: strconv.Itoa(p.ID), Name: p.Name, Key: strconv.Itoa(p.ID)})
	}
	return projects, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v3/projects/%s/modules", projectID), nil)
	if err != nil {
		return nil, err
	}
	var native []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		ParentID int    `json:"parent_id"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed modules response", err)
	}
	folders := make([]canonical.Folder, 0, len(native))
	for _, f := range native {
		folder := canonical.Folder{ID: strconv.Itoa(f.ID), Name: f.Name, Path: f.Name}
		if f.ParentID != 0 {
			folder.ParentID = strconv.Itoa(f.ParentID)
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{}
	if opts.FolderID != "" {
		query["parentId"] = opts.FolderID
	}
	if opts.PageSize > 0 {
		query["pageSize"] = strconv.Itoa(opts.PageSize)
	}
	if opts.Page > 0 {
		query["page"] = strconv.Itoa(opts.Page)
	}

	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v3/projects/%s/test-cases", projectID), query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}

	var native struct {
		Items []NativeTestCase `json:"items"`
		Total int              `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test cases response", err)
	}

	items := make([]canonical.TestCase, 0, len(native.Items))
	for _, n := range native.Items {
		items = append(items, a.mapper.ToTestCase(strconv.Itoa(n.ID), n))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, "/api/v3/test-cases/"+id, nil)
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
	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v3/projects/%s/test-cycles", projectID), nil)
	if err != nil {
		return contract.Page[canonical.TestCycle]{}, err
	}
	var native struct {
		Items []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCycle]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test cycles response", err)
	}
	items := make([]canonical.TestCycle, 0, len(native.Items))
	for _, c := range native.Items {
		items = append(items, canonical.TestCycle{
			ID:          strconv.Itoa(c.ID),
			Name:        c.Name,
			Description: c.Description,
			Status:      canonical.DefaultStatus,
		})
	}
	return contract.Page[canonical.TestCycle]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v3/test-cycles/%s/test-runs", cycleID), nil)
	if err != nil {
		return contract.Page[canonical.TestExecution]{}, err
	}
	var native struct {
		Items []NativeRun `json:"items"`
		Total int         `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestExecution]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test runs response", err)
	}
	items := make([]canonical.TestExecution, 0, len(native.Items))
	for _, n := range native.Items {
		items = append(items, a.mapper.ToExecution(strconv.Itoa(n.ID), n))
	}
	return contract.Page[canonical.TestExecution]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, "/api/v3/attachments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, "/api/v3/projects/fields", map[string]string{"entityType": string(entityType)})
	if err != nil {
		return nil, err
	}
	var native []struct {
		ID       int      `json:"id"`
		Label    string   `json:"label"`
		DataType string   `json:"data_type"`
		Required bool     `json:"required"`
		Options  []string `json:"allowed_values"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed field definitions response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native))
	for _, f := range native {
		defs = append(defs, canonical.FieldDefinition{
			ID:            strconv.Itoa(f.ID),
			Name:          f.Label,
			Type:          fieldTypeFromQTest(f.DataType),
			Required:      f.Required,
			AllowedValues: f.Options,
			Entity:        entityType,
		})
	}
	return defs, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/projects/%s/modules", projectID), map[string]interface{}{
		"name": folder.Name, "parent_id": folder.ParentID,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-module response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	native := a.mapper.FromTestCase(tc)
	resp, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/projects/%s/test-cases", projectID), map[string]interface{}{
		"name": native.Name, "description": native.Description, "precondition": native.Precondition,
		"status_id": native.StatusID, "priority_id": native.PriorityID, "parent_id": native.ParentID,
		"properties": native.Properties,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-case response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	native := a.mapper.FromTestSteps(steps)
	_, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/test-cases/%s/test-steps", testCaseID), map[string]interface{}{"test_steps": native})
	return err
}

func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/projects/%s/test-cycles", projectID), map[string]interface{}{
		"name": cycle.Name, "description": cycle.Description,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-cycle response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	natives := make([]NativeRun, 0, len(execs))
	for _, e := range execs {
		n := a.mapper.FromExecution(e)
		n.TestCycleID = atoi(cycleID)
		natives = append(natives, n)
	}
	_, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/test-cycles/%s/test-runs", cycleID), map[string]interface{}{"test_runs": natives})
	return err
}

func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/api/v3/test-cases/%s/attachments", entityID), map[string]interface{}{
		"name": attachment.Filename, "content_type": attachment.ContentType, "content": content,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed upload-attachment response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "qTest does not support creating custom field definitions via API")
}

func fieldTypeFromQTest(native string) canonical.FieldType {
	switch native {
	case "STRING":
		return canonical.FieldTypeText
	case "CHECKBOX":
		return canonical.FieldTypeBoolean
	case "DATE":
		return canonical.FieldTypeDate
	case "DATETIME":
		return canonical.FieldTypeDateTime
	case "NUMBER":
		return canonical.FieldTypeNumber
	case "MULTI_SELECT":
		return canonical.FieldTypeArray
	case "COMBOBOX":
		return canonical.FieldTypeEnum
	case "USER":
		return canonical.FieldTypeUser
	default:
		return canonical.FieldTypeCustom
	}
}
