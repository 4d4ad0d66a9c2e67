// Package canonical defines the vendor-neutral entity model that every
// provider mapper translates to and from. Entities here are value objects:
// every mapping call produces a fresh instance, and nothing in this package
// retains a mutable reference across calls.
package canonical

import "time"

// Status is the canonical test-case lifecycle state.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusReady           Status = "READY"
	StatusReadyForReview  Status = "READY_FOR_REVIEW"
	StatusNeedsWork       Status = "NEEDS_WORK"
	StatusApproved        Status = "APPROVED"
	StatusDeprecated      Status = "DEPRECATED"
)

// DefaultStatus is used whenever a vendor value is unknown or missing.
const DefaultStatus = StatusDraft

// Priority is the canonical test-case priority.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// DefaultPriority is used whenever a vendor value is unknown or missing.
const DefaultPriority = PriorityMedium

// ExecutionStatus is the canonical result of running a test.
type ExecutionStatus string

const (
	ExecutionPassed        ExecutionStatus = "PASSED"
	ExecutionFailed        ExecutionStatus = "FAILED"
	ExecutionBlocked       ExecutionStatus = "BLOCKED"
	ExecutionNotApplicable ExecutionStatus = "NOT_APPLICABLE"
	ExecutionOpen          ExecutionStatus = "OPEN"
)

// DefaultExecutionStatus is used whenever a vendor value is unknown or missing.
const DefaultExecutionStatus = ExecutionOpen

// UserRef is a lightweight reference to a vendor user, resolved to a display
// name where the vendor provides one and falling back to the raw id.
type UserRef struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// String returns the display name if present, else the id.
func (u UserRef) String() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Audit captures a timestamp plus the user responsible for it.
type Audit struct {
	At time.Time `json:"at"`
	By UserRef   `json:"by"`
}

// TestStep is one ordered step of a TestCase.
//
// Invariant: within a TestCase, Sequence values are unique and ascending
// starting at 1 (P3 — step ordering).
type TestStep struct {
	Sequence       int      `json:"sequence"`
	Action         string   `json:"action"`
	ExpectedResult string   `json:"expectedResult"`
	TestData       string   `json:"testData,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
}

// TestCase is the canonical representation of a single test case.
type TestCase struct {
	ID            string                 `json:"id"`
	Key           string                 `json:"key,omitempty"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Objective     string                 `json:"objective,omitempty"`
	Precondition  string                 `json:"precondition,omitempty"`
	Status        Status                 `json:"status"`
	Priority      Priority               `json:"priority"`
	Steps         []TestStep             `json:"steps,omitempty"`
	Labels        []string               `json:"labels,omitempty"`
	FolderID      string                 `json:"folderId,omitempty"`
	CreatedAt     Audit                  `json:"createdAt"`
	UpdatedAt     Audit                  `json:"updatedAt"`
	CustomFields  map[string]interface{} `json:"customFields,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
}

// CustomFieldsBag lazily initializes and returns the custom-fields map.
func (tc *TestCase) CustomFieldsBag() map[string]interface{} {
	if tc.CustomFields == nil {
		tc.CustomFields = make(map[string]interface{})
	}
	return tc.CustomFields
}

// AttributesBag lazily initializes and returns the vendor-passthrough bag.
func (tc *TestCase) AttributesBag() map[string]interface{} {
	if tc.Attributes == nil {
		tc.Attributes = make(map[string]interface{})
	}
	return tc.Attributes
}

// CustomFieldsPassthrough returns (creating if absent) the nested
// attributes.customFields map every mapper uses for unrecognized vendor
// fields (P4 — custom-field retention).
func (tc *TestCase) CustomFieldsPassthrough() map[string]interface{} {
	attrs := tc.AttributesBag()
	bag, ok := attrs["customFields"].(map[string]interface{})
	if !ok {
		bag = make(map[string]interface{})
		attrs["customFields"] = bag
	}
	return bag
}

// Schedule is a TestCycle's optional execution window.
type Schedule struct {
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
}

// TestCycle groups test cases under a shared environment and schedule.
type TestCycle struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Environment string   `json:"environment,omitempty"`
	TestCaseIDs []string `json:"testCaseIds,omitempty"`
	Schedule    Schedule `json:"schedule"`
}

// StepResult captures the outcome of one step within a TestExecution.
type StepResult struct {
	StepID       string          `json:"stepId,omitempty"`
	Sequence     int             `json:"sequence"`
	Status       ExecutionStatus `json:"status"`
	ActualResult string          `json:"actualResult,omitempty"`
	Comment      string          `json:"comment,omitempty"`
}

// TestExecution is the canonical record of one run of a test case.
type TestExecution struct {
	ID           string                 `json:"id"`
	TestCaseID   string                 `json:"testCaseId"`
	CycleID      string                 `json:"cycleId,omitempty"`
	Status       ExecutionStatus        `json:"status"`
	Timestamp    time.Time              `json:"timestamp"`
	Executor     UserRef                `json:"executor"`
	Environment  string                 `json:"environment,omitempty"`
	DurationSecs int                    `json:"durationSeconds,omitempty"`
	StepResults  []StepResult           `json:"stepResults,omitempty"`
	Comment      string                 `json:"comment,omitempty"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
}

// DefaultAttachmentContentType is used whenever a vendor omits content type.
const DefaultAttachmentContentType = "application/octet-stream"

// Attachment references a blob owned by the external object store.
//
// BlobKey and InlineData are mutually preferred: BlobKey for anything
// already stored out-of-band, InlineData (base64-decoded bytes) only for
// attachments small enough to carry inline during a load.
type Attachment struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	BlobKey     string    `json:"blobKey,omitempty"`
	InlineData  []byte    `json:"inlineData,omitempty"`
	CreatedBy   UserRef   `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FieldType is the canonical coercion taxonomy every mapper's custom field
// handling must route through (§4.1).
type FieldType string

const (
	FieldTypeString    FieldType = "STRING"
	FieldTypeText      FieldType = "TEXT"
	FieldTypeNumber    FieldType = "NUMBER"
	FieldTypeInteger   FieldType = "INTEGER"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeDateTime  FieldType = "DATETIME"
	FieldTypeBoolean   FieldType = "BOOLEAN"
	FieldTypeEnum      FieldType = "ENUM"
	FieldTypeArray     FieldType = "ARRAY"
	FieldTypeUser      FieldType = "USER"
	FieldTypeMultiUser FieldType = "MULTIUSER"
	FieldTypeURL       FieldType = "URL"
	FieldTypeCustom    FieldType = "CUSTOM"
)

// EntityType names the canonical entity a FieldDefinition is attached to.
type EntityType string

const (
	EntityTestCase      EntityType = "TEST_CASE"
	EntityTestCycle     EntityType = "TEST_CYCLE"
	EntityTestExecution EntityType = "TEST_EXECUTION"
)

// FieldDefinition describes one custom field a vendor exposes.
type FieldDefinition struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          FieldType  `json:"type"`
	Required      bool       `json:"required"`
	AllowedValues []string   `json:"allowedValues,omitempty"`
	Entity        EntityType `json:"entity"`
	// Schema, when set, is a JSON Schema document (draft-07) that CUSTOM
	// values must validate against. See FieldType CUSTOM coercion.
	Schema string `json:"schema,omitempty"`
}

// Folder is a hierarchical grouping of test cases.
//
// Invariant: Path equals the slash-joined names of Folder and its
// ancestors, and the parent chain contains no cycles.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	ParentID string `json:"parentId,omitempty"`
}

// Project is the top-level container a vendor organizes work under.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Page is the shape every paged Source collection result takes.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	PageNum  int `json:"page"`
	PageSize int `json:"pageSize"`
}
