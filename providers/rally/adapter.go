package rally

import (
	"context"
	"fmt"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for Rally on
// top of the Resilient HTTP Client and Mapper.
type Adapter struct {
	client *httpclient.Client
	mapper Mapper
}

// New builds a Rally Adapter. fieldMappings is the
// testCaseFieldMappings configuration (spec.md §6), canonical key to
// Rally custom-field key.
func New(client *httpclient.Client, fieldMappings map[string]string) *Adapter {
	return &Adapter{client: client, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "rally" }
func (a *Adapter) Name() string    { return "Rally" }
func (a *Adapter) Version() string { return "v2.0" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              true,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase, canonical.EntityTestExecution},
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
	_, err := a.client.Get(ctx, "/slm/webservice/v2.0/subscription", nil)
	return err
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "Rally", Endpoints: []string{"/testcase", "/testcaseresult"}}, nil
}

func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/project", nil)
	if err != nil {
		return nil, err
	}
	var native struct {
		QueryResult struct {
			Results []struct {
				ObjectID int    `json:"ObjectID"`
				Name     string `json:"Name"`
			} `json:"Results"`
		} `json:"QueryResult"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed project response", err)
	}
	projects := make([]canonical.Project, 0, len(native.QueryResult.Results))
	for _, p := range native.QueryResult.Results {
		projects = append(projects, canonical.Project{ID: fmt.Sprint(p.ObjectID), Name: p.Name, Key: fmt.Sprint(p.ObjectID)})
	}
	return projects, nil
}

func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/testfolder", map[string]string{"project": projectID})
	if err != nil {
		return nil, err
	}
	var native struct {
		QueryResult struct {
			Results []struct {
				ObjectID int    `json:"ObjectID"`
				Name     string `json:"Name"`
				Parent   struct {
					ObjectID int `json:"ObjectID"`
				} `json:"Parent"`
			} `json:"Results"`
		} `json:"QueryResult"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed testfolder response", err)
	}
	folders := make([]canonical.Folder, 0, len(native.QueryResult.Results))
	for _, f := range native.QueryResult.Results {
		folder := canonical.Folder{ID: fmt.Sprint(f.ObjectID), Name: f.Name, Path: f.Name}
		if f.Parent.ObjectID != 0 {
			folder.ParentID = fmt.Sprint(f.Parent.ObjectID)
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	query := map[string]string{"project": projectID}
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/testcase", query)
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}
	var native struct {
		QueryResult struct {
			Results    []NativeTestCase `json:"Results"`
			TotalResultCount int        `json:"TotalResultCount"`
		} `json:"QueryResult"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestCase]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed testcase response", err)
	}
	items := make([]canonical.TestCase, 0, len(native.QueryResult.Results))
	for _, n := range native.QueryResult.Results {
		items = append(items, a.mapper.ToTestCase(n.FormattedID, n))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: native.QueryResult.TotalResultCount, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/testcase/"+id, nil)
	if err != nil {
		return canonical.TestCase{}, err
	}
	var native NativeTestCase
	if err := resp.JSON(&native); err != nil {
		return canonical.TestCase{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed testcase response", err)
	}
	return a.mapper.ToTestCase(id, native), nil
}

// GetTestCycles returns an empty page: Rally has no first-class test
// cycle concept (test sets are the closest analogue but are out of
// scope for this adapter — spec.md Non-goals leave cross-vendor
// hierarchy reconciliation to the caller).
func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	return contract.Page[canonical.TestCycle]{}, nil
}

func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/testcaseresult", map[string]string{"testcase": cycleID})
	if err != nil {
		return contract.Page[canonical.TestExecution]{}, err
	}
	var native struct {
		QueryResult struct {
			Results          []NativeResult `json:"Results"`
			TotalResultCount int            `json:"TotalResultCount"`
		} `json:"QueryResult"`
	}
	if err := resp.JSON(&native); err != nil {
		return contract.Page[canonical.TestExecution]{}, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed testcaseresult response", err)
	}
	items := make([]canonical.TestExecution, 0, len(native.QueryResult.Results))
	for _, n := range native.QueryResult.Results {
		items = append(items, a.mapper.ToExecution(n.FormattedID, n))
	}
	return contract.Page[canonical.TestExecution]{Items: items, Total: native.QueryResult.TotalResultCount, Page: opts.Page, PageSize: opts.PageSize}, nil
}

func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/attachment/"+id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	resp, err := a.client.Get(ctx, "/slm/webservice/v2.0/typedefinition", map[string]string{"entity": string(entityType)})
	if err != nil {
		return nil, err
	}
	var native struct {
		QueryResult struct {
			Results []struct {
				ElementName string `json:"ElementName"`
				DisplayName string `json:"DisplayName"`
				AttributeType string `json:"AttributeType"`
			} `json:"Results"`
		} `json:"QueryResult"`
	}
	if err := resp.JSON(&native); err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed typedefinition response", err)
	}
	defs := make([]canonical.FieldDefinition, 0, len(native.QueryResult.Results))
	for _, f := range native.QueryResult.Results {
		defs = append(defs, canonical.FieldDefinition{
			ID:     f.ElementName,
			Name:   f.DisplayName,
			Type:   fieldTypeFromRally(f.AttributeType),
			Entity: entityType,
		})
	}
	return defs, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	resp, err := a.client.Post(ctx, "/slm/webservice/v2.0/testfolder/create", map[string]interface{}{
		"TestFolder": map[string]interface{}{"Name": folder.Name, "Project": projectID, "Parent": folder.ParentID},
	})
	if err != nil {
		return "", err
	}
	var created struct {
		CreateResult struct {
			Object struct {
				ObjectID int `json:"ObjectID"`
			} `json:"Object"`
		} `json:"CreateResult"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-testfolder response", err)
	}
	return fmt.Sprint(created.CreateResult.Object.ObjectID), nil
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	native := a.mapper.FromTestCase(tc)
	resp, err := a.client.Post(ctx, "/slm/webservice/v2.0/testcase/create", map[string]interface{}{
		"TestCase": map[string]interface{}{
			"Name": native.Name, "Description": native.Description, "Priority": native.Priority,
			"Project": projectID, "c_CustomFields": native.Custom,
		},
	})
	if err != nil {
		return "", err
	}
	var created struct {
		CreateResult struct {
			Object struct {
				FormattedID string `json:"FormattedID"`
			} `json:"Object"`
		} `json:"CreateResult"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-testcase response", err)
	}
	return created.CreateResult.Object.FormattedID, nil
}

func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	native := a.mapper.FromTestSteps(steps)
	for _, s := range native {
		_, err := a.client.Post(ctx, "/slm/webservice/v2.0/testcasestep/create", map[string]interface{}{
			"TestCaseStep": map[string]interface{}{"TestCase": testCaseID, "Input": s.Input, "ExpectedResult": s.ExpectedResult},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateTestCycle always fails: Rally has no first-class test cycle
// concept to create one against.
func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "Rally has no first-class test cycle concept")
}

func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	for _, e := range execs {
		native := a.mapper.FromExecution(e)
		_, err := a.client.Post(ctx, "/slm/webservice/v2.0/testcaseresult/create", map[string]interface{}{
			"TestCaseResult": native,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	resp, err := a.client.Post(ctx, "/slm/webservice/v2.0/attachment/create", map[string]interface{}{
		"Attachment": map[string]interface{}{"Name": attachment.Filename, "Content": content, "Artifact": entityID},
	})
	if err != nil {
		return "", err
	}
	var created struct {
		CreateResult struct {
			Object struct {
				ObjectID int `json:"ObjectID"`
			} `json:"Object"`
		} `json:"CreateResult"`
	}
	if err := resp.JSON(&created); err != nil {
		return "", apierrors.Wrap(a.ID(), apierrors.Validation, "malformed create-attachment response", err)
	}
	return fmt.Sprint(created.CreateResult.Object.ObjectID), nil
}

func (a *Adapter) CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "Rally does not support creating custom field definitions via API")
}

func fieldTypeFromRally(native string) canonical.FieldType {
	switch native {
	case "STRING", "TEXT":
		return canonical.FieldTypeText
	case "BOOLEAN":
		return canonical.FieldTypeBoolean
	case "DATE":
		return canonical.FieldTypeDateTime
	case "INTEGER", "DECIMAL":
		return canonical.FieldTypeNumber
	case "COLLECTION":
		return canonical.FieldTypeArray
	default:
		return canonical.FieldTypeCustom
	}
}
