package hpalm

import (
	"context"
	"fmt"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for HP ALM on
// top of the Resilient HTTP Client and Mapper.
type Adapter struct {
	client  *httpclient.Client
	mapper  Mapper
	domain  string
	project string
}

// New builds an HP ALM Adapter. domain and project select the ALM
// tenant this adapter operates against; fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6).
func New(client *httpclient.Client, domain, project string, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}, domain: domain, project: project}
}

func (a *Adapter) ID() string      { return "hpalm" }
func (a *Adapter) Name() string    { return "HP ALM" }
func (a *Adapter) Version() string { return "12.60" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              true,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase, canonical.EntityTestCycle, canonical.EntityTestExecution},
		SupportsAttachments:      true,
		SupportsExecutionHistory: true,
		SupportsTestSteps:        false,
		SupportsHierarchy:        true,
		SupportsCustomFields:     true,
	}
}

// Initialize has nothing to set up beyond what New already wired; it
// exists only to satisfy contract.Base.
func (a *Adapter) Initialize(ctx context.Context) error {
	return nil
}

func (a *Adapter) basePath() string {
	return fmt.Sprintf("/qcbin/rest/domains/%s/projects/%s", a.domain, a.project)
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.client.Get(ctx, a.basePath()+"/customization/users", nil)
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "HP ALM", Endpoints: []string{a.basePath() + "/tests", a.basePath() + "/runs"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	return []canonical.Project{{ID: a.project, Name: a.project, Key: a.project}}, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, a.basePath()+"/test-folders", nil)
	if err != nil {
		return nil, err
	}
	var native struct {
		Entities []NativeEntity `json:"entities"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test-folders response", err)
	}
	folders := make([]canonical.Folder, 0, len(native.Entities))
	for _, e := range native.Entities {
		folders = append(folders, canonical.Folder{ID: e.ID, Name: e.field("name"), Path: e.field("name"), ParentID: e.field("parent-id")})
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{}
	if opts.FolderID != "" {
		query["query"] = "{parent-id[" + opts.FolderID + "]}"
	}
	resp, err := a.client.Get(ctx, a.basePath()+"/tests", query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}
	var native struct {
		Entities   []NativeEntity `json:"entities"`
		TotalResults int          `json:"TotalResults"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed tests response", err)
	}
	items := make([]canonical.TestCase, 0, len(native.Entities))
	for _, e := range native.Entities {
		items = append(items, a.mapper.ToTestCase(e.ID, e))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.TotalResults, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, a.basePath()+"/tests/"+id, nil)
	if err != nil {
		return canonical.TestCase{}, err
	}
	var native NativeEntity
	if err := resp.JSON(&native); err != nil {
		return canonical.TestCase{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test response", err)
	}
	return a.mapper.ToTestCase(id, native), nil
}

func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	resp, err := a.client.Get(ctx, a.basePath()+"/test-sets", nil)
	if err != nil {
		return contract.Page[canonical.TestCycle]{}, err
	}
	var native struct {
		Entities     []NativeEntity `json:"entities"`
		TotalResults int            `json:"TotalResults"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCycle]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed test-sets response", err)
	}
	items := make([]canonical.TestCycle, 0, len(native.Entities))
	for _, e := range native.Entities {
		items = append(items, canonical.TestCycle{ID: e.ID, Name: e.field("name"), Status: canonical.DefaultStatus})
	}
	return contract.Page[canonical.TestCycle]{Items: items, Total: native.TotalResults, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	resp, err := a.client.Get(ctx, a.basePath()+"/runs", map[string]string{"query": "{testcycl-id[" + cycleID + "]}"})
	if err != nil {
		return contract.Page[canonical.TestExecution]{}, err
	}
	var native struct {
		Entities     []NativeRun `json:"entities"`
		TotalResults int         `json:"TotalResults"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestExecution]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed runs response", err)
	}
	items := make([]canonical.TestExecution, 0, len(native.Entities))
	for _, e := range native.Entities {
		items = append(items, a.mapper.ToExecution(e.ID, e))
	}
	return contract.Page[canonical.TestExecution]{Items: items, Total: native.TotalResults, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, a.basePath()+"/attachments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, a.basePath()+"/customization/entities/test/fields", nil)
	if err != nil {
		return nil, err
	}
	var native struct {
		Fields []struct {
			Name     string `json:"Name"`
			Label    string `json:"Label"`
			Type     string `json:"Type"`
			Required bool   `json:"IsRequired"`
		} `json:"Fields"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed fields response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native.Fields))
	for _, f := range native.Fields {
		defs = append(defs, canonical.FieldDefinition{
			ID: f.Name, Name: f.Label, Type: fieldTypeFromALM(f.Type), Required: f.Required, Entity: entityType,
		})
	}
	return defs, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	resp, err := a.client.Post(ctx, a.basePath()+"/test-folders", NativeEntity{Fields: []NativeField{
		{Name: "name", Values: []string{folder.Name}},
		{Name: "parent-id", Values: []string{folder.ParentID}},
	}})
	if err != nil {
		return "", err
	}
	var created NativeEntity
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-folder response", err)
	}
	return created.ID, nil
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	native := a.mapper.FromTestCase(tc)
	resp, err := a.client.Post(ctx, a.basePath()+"/tests", native)
	if err != nil {
		return "", err
	}
	var created NativeEntity
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test response", err)
	}
	return created.ID, nil
}

// CreateTestSteps always fails: ALM test-case steps are created
// through the "design-steps" sub-resource which speaks a different,
// XML-flavored payload this adapter does not yet generate.
func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	return apierrors.New(a.ID(), apierrors.Unsupported, "HP ALM design-steps are not yet supported by this adapter")
}

func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	resp, err := a.client.Post(ctx, a.basePath()+"/test-sets", NativeEntity{Fields: []NativeField{
		{Name: "name", Values: []string{cycle.Name}},
	}})
	if err != nil {
		return "", err
	}
	var created NativeEntity
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-test-set response", err)
	}
	return created.ID, nil
}

func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	for _, e := range execs {
		e.CycleID = cycleID
		native := a.mapper.FromExecution(e)
		_, err := a.client.Post(ctx, a.basePath()+"/runs", native)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	resp, err := a.client.Post(ctx, a.basePath()+"/attachments", map[string]interface{}{
		"name": attachment.Filename, "content": content, "parent-id": entityID,
	})
	if err != nil {
		return "", err
	}
	var created NativeEntity
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed upload-attachment response", err)
	}
	return created.ID, nil
}

func (a *Adapter) CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "HP ALM does not support creating custom field definitions via API")
}

func fieldTypeFromALM(native string) canonical.FieldType {
	switch native {
	case "String", "Memo":
		return canonical.FieldTypeText
	case "Boolean":
		return canonical.FieldTypeBoolean
	case "Date":
		return canonical.FieldTypeDate
	case "Number":
		return canonical.FieldTypeNumber
	case "Lookup List":
		return canonical.FieldTypeEnum
	default:
		return canonical.FieldTypeCustom
	}
}
