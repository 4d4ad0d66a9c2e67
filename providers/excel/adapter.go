package excel

import (
	"context"
	"encoding/csv"
	"os"
	"sync"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter implements contract.Source and contract.Target for a flat
// CSV export sitting on local disk, rather than against a remote API —
// there is no rate limiter, breaker, or auth handshake to survive
// here, just a file. Reads and writes are serialized by mu since the
// whole export is held in memory and rewritten on every mutation.
type Adapter struct {
	mu     sync.Mutex
	path   string
	mapper Mapper
	header []string
}

// New builds an Excel Adapter rooted at the given CSV export path.
// fieldMappings is the testCaseFieldMappings configuration (spec.md
// §6), canonical key to export column header.
func New(path string, fieldMappings map[string]string) *Adapter {
	return &Adapter{path: path, mapper: Mapper{FieldMappings: fieldMappings}}
}

func (a *Adapter) ID() string      { return "excel" }
func (a *Adapter) Name() string    { return "Excel Export" }
func (a *Adapter) Version() string { return "csv-1" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{
		CanBeSource:              true,
		CanBeTarget:              true,
		EntityTypes:              []canonical.EntityType{canonical.EntityTestCase},
		SupportsAttachments:      false,
		SupportsExecutionHistory: false,
		SupportsTestSteps:        true,
		SupportsHierarchy:        false,
		SupportsCustomFields:     true,
	}
}

// Initialize has nothing to set up; New already captured the file path.
func (a *Adapter) Initialize(ctx context.Context) error {
	return nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	f, err := os.Open(a.path)
	if err != nil {
		return apierrors.Wrap(a.ID(), apierrors.NotFound, "export file not readable", err)
	}
	return f.Close()
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{DisplayName: "Excel Export", Endpoints: []string{a.path}}, nil
}

// GetProjects returns a single synthetic project: a flat export has no
// project concept of its own.
func (a *Adapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	return []canonical.Project{{ID: "export", Name: "Excel Export", Key: "export"}}, nil
}

// GetFolders returns no folders: exports are flat (Capabilities
// declares SupportsHierarchy: false).
func (a *Adapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	return nil, nil
}

func (a *Adapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	rows, err := a.readRows()
	if err != nil {
		return contract.Page[canonical.TestCase]{}, err
	}
	items := make([]canonical.TestCase, 0, len(rows))
	for i, row := range rows {
		id := row.Columns[a.mapper.col("id", "ID")]
		if id == "" {
			id = rowNumber(i)
		}
		items = append(items, a.mapper.ToTestCase(id, row))
	}
	return contract.Page[canonical.TestCase]{Items: items, Total: len(items), Page: 1, PageSize: len(items)}, nil
}

func (a *Adapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	if id == "" {
		return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.Validation, "test case id must not be empty")
	}
	rows, err := a.readRows()
	if err != nil {
		return canonical.TestCase{}, err
	}
	for i, row := range rows {
		rowID := row.Columns[a.mapper.col("id", "ID")]
		if rowID == "" {
			rowID = rowNumber(i)
		}
		if rowID == id {
			return a.mapper.ToTestCase(id, row), nil
		}
	}
	return canonical.TestCase{}, apierrors.New(a.ID(), apierrors.NotFound, "no row with that id in the export")
}

// GetTestCycles returns an empty page: a flat export carries no
// execution-cycle concept.
func (a *Adapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	return contract.Page[canonical.TestCycle]{}, nil
}

// GetTestExecutions returns an empty page for the same reason as
// GetTestCycles.
func (a *Adapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	return contract.Page[canonical.TestExecution]{}, nil
}

// GetAttachmentContent always fails: Capabilities declares
// SupportsAttachments: false, a CSV cell cannot carry binary content.
func (a *Adapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	return nil, apierrors.New(a.ID(), apierrors.Unsupported, "excel exports do not carry attachment content")
}

// GetFieldDefinitions infers one STRING field definition per header
// column not already part of the fixed set: a CSV header row carries
// no declared type, so every unrecognized column is untyped text.
func (a *Adapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	a.mu.Lock()
	header := append([]string(nil), a.header...)
	a.mu.Unlock()
	if header == nil {
		if _, err := a.readRows(); err != nil {
			return nil, err
		}
		a.mu.Lock()
		header = append([]string(nil), a.header...)
		a.mu.Unlock()
	}
	known := map[string]bool{
		a.mapper.col("id", "ID"): true, a.mapper.col("title", "Title"): true,
		a.mapper.col("description", "Description"): true, a.mapper.col("precondition", "Precondition"): true,
		a.mapper.col("status", "Status"): true, a.mapper.col("priority", "Priority"): true,
		a.mapper.col("folderId", "Folder"): true, a.mapper.col("steps", "Steps"): true,
		a.mapper.col("createdAt", "Created Date"): true,
	}
	defs := make([]canonical.FieldDefinition, 0)
	for _, h := range header {
		if known[h] {
			continue
		}
		defs = append(defs, canonical.FieldDefinition{ID: h, Name: h, Type: canonical.FieldTypeString, Entity: entityType})
	}
	return defs, nil
}

// CreateFolder always fails: exports are flat.
func (a *Adapter) CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "excel exports have no folder hierarchy")
}

func (a *Adapter) CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, err := a.readRowsLocked()
	if err != nil {
		return "", err
	}
	row := a.mapper.FromTestCase(tc)
	id := tc.ID
	if id == "" {
		id = rowNumber(len(rows))
	}
	row.Columns[a.mapper.col("id", "ID")] = id
	rows = append(rows, row)
	if err := a.writeRowsLocked(rows); err != nil {
		return "", err
	}
	return id, nil
}

// CreateTestSteps re-reads, updates, and rewrites the owning row's
// steps column: there is no separate steps resource in a flat export.
func (a *Adapter) CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, err := a.readRowsLocked()
	if err != nil {
		return err
	}
	idCol := a.mapper.col("id", "ID")
	found := false
	for i, row := range rows {
		if row.Columns[idCol] == testCaseID {
			rows[i].Columns[a.mapper.col("steps", "Steps")] = SerializeSteps(steps)
			found = true
			break
		}
	}
	if !found {
		return apierrors.New(a.ID(), apierrors.NotFound, "no row with that id in the export")
	}
	return a.writeRowsLocked(rows)
}

// CreateTestCycle always fails: a flat export has no cycle concept.
func (a *Adapter) CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "excel exports have no test cycle concept")
}

// CreateTestExecutions always fails for the same reason.
func (a *Adapter) CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error {
	return apierrors.New(a.ID(), apierrors.Unsupported, "excel exports have no test execution concept")
}

// UploadAttachment always fails: Capabilities declares
// SupportsAttachments: false.
func (a *Adapter) UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "excel exports do not carry attachment content")
}

// CreateFieldDefinition always fails: a CSV header row has no schema
// registry to extend.
func (a *Adapter) CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error) {
	return "", apierrors.New(a.ID(), apierrors.Unsupported, "excel exports have no field-definition registry")
}

func (a *Adapter) readRows() ([]Row, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readRowsLocked()
}

func (a *Adapter) readRowsLocked() ([]Row, error) {
	f, err := os.Open(a.path)
	if os.IsNotExist(err) {
		a.header = []string{"ID", "Title", "Description", "Precondition", "Status", "Priority", "Folder", "Steps", "Created Date"}
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.NotFound, "export file not readable", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apierrors.Wrap(a.ID(), apierrors.Validation, "malformed csv export", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	a.header = records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		cols := make(map[string]string, len(a.header))
		for i, h := range a.header {
			if i < len(record) {
				cols[h] = record[i]
			}
		}
		rows = append(rows, Row{Columns: cols})
	}
	return rows, nil
}

func (a *Adapter) writeRowsLocked(rows []Row) error {
	if a.header == nil {
		a.header = []string{"ID", "Title", "Description", "Precondition", "Status", "Priority", "Folder", "Steps", "Created Date"}
	}
	headerSet := make(map[string]bool, len(a.header))
	for _, h := range a.header {
		headerSet[h] = true
	}
	for _, row := range rows {
		for h := range row.Columns {
			if !headerSet[h] {
				headerSet[h] = true
				a.header = append(a.header, h)
			}
		}
	}

	f, err := os.Create(a.path)
	if err != nil {
		return apierrors.Wrap(a.ID(), apierrors.Unknown, "export file not writable", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(a.header); err != nil {
		return apierrors.Wrap(a.ID(), apierrors.Unknown, "failed writing export header", err)
	}
	for _, row := range rows {
		record := make([]string, len(a.header))
		for i, h := range a.header {
			record[i] = row.Columns[h]
		}
		if err := writer.Write(record); err != nil {
			return apierrors.Wrap(a.ID(), apierrors.Unknown, "failed writing export row", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
