package visure

import (
	"context"
	"fmt"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source for Visure Requirements ALM on
// top of the Resilient HTTP Client and Mapper. Visure is read-only in
// this module: requirement-driven test specifications migrate out of
// Visure into execution-oriented systems, never back in, so this
// adapter implements contract.Source only.
type Adapter struct {
	client *httpclient.Client
	mapper Mapper
}

// New builds a Visure Adapter. fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6), canonical key to
// Visure attribute key.
func New(client *httpclient.Client, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "visure" }
func (a *Adapter) Name() string    { return "Visure Requirements ALM" }
func (a *Adapter) Version() string { return "v1" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              false,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase},
		SupportsAttachments:      true,
		SupportsExecutionHistory: false,
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
	_, err := a.client.Get(ctx, "/api/v1/projects", nil)
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "Visure Requirements ALM", Endpoints: []string{"/api/v1/requirements"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	resp, err := a.client.Get(ctx, "/api/v1/projects", nil)
	if err != nil {
		return nil, err
	}
	var native []struct {
		UID  string `json:"uid"`
		Name string `json:"name"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed projects response", err)
	}
	projects := make([]canonical.Project, 0, len(native))
	for _, p := range native {
		projects = append(projects, canonical.Project{ID: p.UID, Name: p.Name, Key: p.UID})
	}
	return projects, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v1/projects/%s/folders", projectID), nil)
	if err != nil {
		return nil, err
	}
	var native []struct {
		UID       string `json:"uid"`
		Title     string `json:"title"`
		ParentUID string `json:"parentUid"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed folders response", err)
	}
	folders := make([]canonical.Folder, 0, len(native))
	for _, f := range native {
		folders = append(folders, canonical.Folder{ID: f.UID, Name: f.Title, Path: f.Title, ParentID: f.ParentUID})
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{"type": "TestCase"}
	if opts.FolderID != "" {
		query["parentUid"] = opts.FolderID
	}
	resp, err := a.client.Get(ctx, fmt.Sprintf("/api/v1/projects/%s/requirements", projectID), query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}
	var native struct {
		Items []NativeTestCase `json:"items"`
		Total int              `json:"total"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed requirements response", err)
	}
	items := make([]canonical.TestCase, 0, len(native.Items))
	for _, n := range native.Items {
		items = append(items, a.mapper.ToTestCase(n.UID, n))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.Total, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, "/api/v1/requirements/"+id, nil)
	if err != nil {
		return canonical.TestCase{}, err
	}
	var native NativeTestCase
	if err := resp.JSON(&native); err != nil {
		return canonical.TestCase{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed requirement response", err)
	}
	return a.mapper.ToTestCase(id, native), nil
}

// GetTestCycles returns an empty page: Visure has no test-execution
// concept at all, only requirement-linked test specifications.
func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	return contract.Page[canonical.TestCycle]{}, nil
}

// GetTestExecutions returns an empty page for the same reason as
// GetTestCycles.
func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	return contract.Page[canonical.TestExecution]{}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, "/api/v1/attachments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, "/api/v1/attribute-definitions", map[string]string{"entity": string(entityType)})
	if err != nil {
		return nil, err
	}
	var native []struct {
		Key      string `json:"key"`
		Label    string `json:"label"`
		DataType string `json:"dataType"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed attribute-definitions response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native))
	for _, f := range native {
		defs = append(defs, canonical.FieldDefinition{ID: f.Key, Name: f.Label, Type: fieldTypeFromVisure(f.DataType), Entity: entityType})
	}
	return defs, nil
}

func fieldTypeFromVisure(native string) canonical.FieldType {
	switch native {
	case "text", "richText":
		return canonical.FieldTypeText
	case "boolean":
		return canonical.FieldTypeBoolean
	case "date":
		return canonical.FieldTypeDate
	case "integer", "real":
		return canonical.FieldTypeNumber
	case "enum":
		return canonical.FieldTypeEnum
	default:
		return canonical.FieldTypeCustom
	}
}
