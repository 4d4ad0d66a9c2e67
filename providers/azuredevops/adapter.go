package azuredevops

import (
	"context"
	"fmt"
	"strconv"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for Azure
// DevOps Test Plans on top of the Resilient HTTP Client and Mapper.
type Adapter struct {
	client *httpclient.Client
	mapper Mapper
}

// New builds an Azure DevOps Adapter. fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6), canonical key to
// work item field reference name.
func New(client *httpclient.Client, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "azuredevops" }
func (a *Adapter) Name() string    { return "Azure DevOps Test Plans" }
func (a *Adapter) Version() string { return "7.1" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              true,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase, canonical.EntityTestCycle, canonical.EntityTestExecution},
		SupportsAttachments:      true,
		SupportsExecutionHistory: true,
		SupportsTestSteps:        true,
		SupportsHierarchy:        false,
		SupportsCustomFields:     true,
	}
}

// Initialize has nothing to set up beyond what New already wired; it
// exists only to satisfy contract.Base.
func (a *Adapter) Initialize(ctx context.Context) error {
	return nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.client.Get(ctx, "/_apis/projects", map[string]string{"api-version": "7.1"})
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "Azure DevOps Test Plans", Endpoints: []string{"/_apis/wit/workitems", "/_apis/test/plans"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	resp, err := a.client.Get(ctx, "/_apis/projects", map[string]string{"api-version": "7.1"})
	if err != nil {
		return nil, err
	}
	var native struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed projects response", err)
	}
	projects := make([]canonical.Project, 0, len(native.Value))
	for _, p := range native.Value {
		projects = append(projects, canonical.Project{ID: p.ID, Name: p.Name, Key: p.ID})
	}
	return projects, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/%s/_apis/test/suites", projectID), map[string]string{"api-version": "7.1"})
	if err != nil {
		return nil, err
	}
	var native struct {
		Value []struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			ParentID int    `json:"parent"`
		} `json:"value"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed suites response", err)
	}
	folders := make([]canonical.Folder, 0, len(native.Value))
	for _, s := range native.Value {
		folder := canonical.Folder{ID: strconv.Itoa(s.ID), Name: s.Name, Path: s.Name}
		if s.ParentID != 0 {
			folder.ParentID = strconv.Itoa(s.ParentID)
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{"api-version": "7.1", "$top": "200"}
	resp, err := a.client.Get(ctx, fmt.Sprintf("/%s/_apis/wit/workitems", projectID), query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}
	var native struct {
		Value []NativeWorkItem `json:"value"`
		Count int              `json:"count"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed work items response", err)
	}
	items := make([]canonical.TestCase, 0, len(native.Value))
	for _, n := range native.Value {
		items = append(items, a.mapper.ToTestCase(strconv.Itoa(n.ID), n))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.Count, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, "/_apis/wit/workitems/"+id, map[string]string{"api-version": "7.1"})
	if err != nil {
		return canonical.TestCase{}, err
	}
	var native NativeWorkItem
	if err := resp.JSON(&native); err != nil {
		return canonical.TestCase{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed work item response", err)
	}
	return a.mapper.ToTestCase(id, native), nil
}

func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/%s/_apis/test/plans", projectID), map[string]string{"api-version": "7.1"})
	if err != nil {
		return contract.Page[canonical.TestCycle]{}, err
	}
	var native struct {
		Value []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
		Count int `json:"count"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCycle]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test plans response", err)
	}
	items := make([]canonical.TestCycle, 0, len(native.Value))
	for _, p := range native.Value {
		items = append(items, canonical.TestCycle{ID: strconv.Itoa(p.ID), Name: p.Name, Status: canonical.DefaultStatus})
	}
	return contract.Page[canonical.TestCycle]{Items: items, Total: native.Count, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/_apis/test/Runs/%s/results", cycleID), map[string]string{"api-version": "7.1"})
	if err != nil {
		return contract.Page[canonical.TestExecution]{}, err
	}
	var native struct {
		Value []struct {
			ID           int    `json:"id"`
			TestCaseID   int    `json:"testCaseId"`
			Outcome      string `json:"outcome"`
			CompletedDate string `json:"completedDate"`
			RunBy        struct {
				ID string `json:"id"`
			} `json:"runBy"`
			Comment string `json:"comment"`
		} `json:"value"`
		Count int `json:"count"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestExecution]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test results response", err)
	}
	items := make([]canonical.TestExecution, 0, len(native.Value))
	for _, r := range native.Value {
		items = append(items, canonical.TestExecution{
			ID:         strconv.Itoa(r.ID),
			TestCaseID: strconv.Itoa(r.TestCaseID),
			CycleID:    cycleID,
			Status:     canonical.NormalizeExecutionStatus(lookupExecutionStatus(r.Outcome)),
			Timestamp:  parseTime(r.CompletedDate),
			Executor:   canonical.UserRef{ID: r.RunBy.ID},
			Comment:    r.Comment,
		})
	}
	return contract.Page[canonical.TestExecution]{Items: items, Total: native.Count, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, "/_apis/wit/attachments/"+id, map[string]string{"api-version": "7.1"})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, "/_apis/wit/fields", map[string]string{"api-version": "7.1"})
	if err != nil {
		return nil, err
	}
	var native struct {
		Value []struct {
			ReferenceName string `json:"referenceName"`
			Name          string `json:"name"`
			Type          string `json:"type"`
		} `json:"value"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed fields response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native.Value))
	for _, f := range native.Value {
		defs = append(defs, canonical.FieldDefinition{
			ID:     f.ReferenceName,
			Name:   f.Name,
			Type:   fieldTypeFromADO(f.Type),
			Entity: entityType,
		})
	}
	return defs, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/%s/_apis/test/suites/%s", projectID, folder.ParentID), map[string]interface{}{
		"name": folder.Name,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-suite response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	native := a.mapper.FromTestCase(tc)
	var ops []map[string]interface{}
	for field, value := range native.Fields {
		ops = append(ops, map[string]interface{}{"op": "add", "path": "/fields/" + field, "value": value})
	}
	resp, err := a.client.Post(ctx, fmt.Sprintf("/%s/_apis/wit/workitems/$Test Case", projectID), ops)
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-work-item response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	ops := []map[string]interface{}{
		{"op": "add", "path": "/fields/Microsoft.VSTS.TCM.Steps", "value": SerializeSteps(steps)},
	}
	_, err := a.client.Patch(ctx, "/_apis/wit/workitems/"+testCaseID, ops)
	return err
}

func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	resp, err := a.client.Post(ctx, fmt.Sprintf("/%s/_apis/test/plans", projectID), map[string]interface{}{"name": cycle.Name})
	if err != nil {
		return "", err
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-plan response", err)
	}
	return strconv.Itoa(created.ID), nil
}

func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	payload := make([]map[string]interface{}, 0, len(execs))
	for _, e := range execs {
		payload = append(payload, map[string]interface{}{
			"testCaseId": e.TestCaseID,
			"outcome":    executionStatusToADO[canonical.NormalizeExecutionStatus(e.Status)],
			"comment":    e.Comment,
		})
	}
	_, err := a.client.Post(ctx, fmt.Sprintf("/_apis/test/Runs/%s/results", cycleID), payload)
	return err
}

func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	resp, err := a.client.Post(ctx, "/_apis/wit/attachments", map[string]interface{}{
		"fileName": attachment.Filename, "content": content,
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
	resp, err := a.client.Post(ctx, "/_apis/wit/fields", map[string]interface{}{
		"name": def.Name, "referenceName": def.ID, "type": adoFieldTypeFrom(def.Type),
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ReferenceName string `json:"referenceName"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-field response", err)
	}
	return created.ReferenceName, nil
}

func fieldTypeFromADO(native string) canonical.FieldType {
	switch native {
	case "string":
		return canonical.FieldTypeText
	case "boolean":
		return canonical.FieldTypeBoolean
	case "dateTime":
		return canonical.FieldTypeDateTime
	case "double", "integer":
		return canonical.FieldTypeNumber
	case "plainText", "html":
		return canonical.FieldTypeText
	default:
		return canonical.FieldTypeCustom
	}
}

func adoFieldTypeFrom(t canonical.FieldType) string {
	switch t {
	case canonical.FieldTypeBoolean:
		return "boolean"
	case canonical.FieldTypeDateTime, canonical.FieldTypeDate:
		return "dateTime"
	case canonical.FieldTypeNumber, canonical.FieldTypeInteger:
		return "integer"
	default:
		return "string"
	}
}
