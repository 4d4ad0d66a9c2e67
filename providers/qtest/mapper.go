// Package qtest implements the Provider Mapper and Adapter for qTest
// Manager (spec.md §4.10/§4.11). qTest nests steps under "test-steps"
// and exposes status/priority as small integer IDs rather than
// strings, so the enum tables here map from numeric qTest field
// values instead of vendor labels.
package qtest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

// statusFromQTest maps qTest's numeric status id to the canonical
// Status enum. Unknown ids fall back to canonical.DefaultStatus.
var statusFromQTest = map[int]canonical.Status{
	1: canonical.StatusDraft,
	2: canonical.StatusReadyForReview,
	3: canonical.StatusApproved,
	4: canonical.StatusNeedsWork,
	5: canonical.StatusDeprecated,
}

var statusToQTest = invertStatus(statusFromQTest)

// priorityFromQTest maps qTest's numeric priority id.
var priorityFromQTest = map[int]canonical.Priority{
	1: canonical.PriorityCritical,
	2: canonical.PriorityHigh,
	3: canonical.PriorityMedium,
	4: canonical.PriorityLow,
}

var priorityToQTest = invertPriority(priorityFromQTest)

// priorityNameFromQTest maps the textual priority names some qTest
// installations return in place of a numeric priority_id (spec.md §8
// Scenario 6) to the same canonical.Priority values as the id table.
var priorityNameFromQTest = map[string]canonical.Priority{
	"critical": canonical.PriorityCritical,
	"high":     canonical.PriorityHigh,
	"medium":   canonical.PriorityMedium,
	"low":      canonical.PriorityLow,
}

// executionStatusFromQTest maps qTest's numeric test-run status id.
var executionStatusFromQTest = map[int]canonical.ExecutionStatus{
	1: canonical.ExecutionPassed,
	2: canonical.ExecutionFailed,
	3: canonical.ExecutionBlocked,
	4: canonical.ExecutionOpen,
	5: canonical.ExecutionNotApplicable,
}

var executionStatusToQTest = invertExecutionStatus(executionStatusFromQTest)

func invertStatus(m map[int]canonical.Status) map[canonical.Status]int {
	out := make(map[canonical.Status]int, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

func invertPriority(m map[int]canonical.Priority) map[canonical.Priority]int {
	out := make(map[canonical.Priority]int, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

func invertExecutionStatus(m map[int]canonical.ExecutionStatus) map[canonical.ExecutionStatus]int {
	out := make(map[canonical.ExecutionStatus]int, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

// NativeTestCase is the shape of one qTest test case as returned by its
// REST API (trimmed to the fields this mapper consumes).
type NativeTestCase struct {
	ID           int                    `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Precondition string                 `json:"precondition"`
	StatusID     int                    `json:"status_id"`
	PriorityID   PriorityID             `json:"priority_id"`
	ParentID     int                    `json:"parent_id"`
	Steps        []NativeStep           `json:"test_steps"`
	Properties   map[string]interface{} `json:"properties"`
	CreatedDate  string                 `json:"created_date"`
	LastModified string                 `json:"last_modified_date"`
}

// PriorityID carries qTest's priority_id field, which some
// installations return as a numeric id and others as a textual
// priority name (spec.md §8 Scenario 6). It unmarshals from either JSON
// shape and marshals back to whichever shape it was built with.
type PriorityID struct {
	Num  int
	Name string
}

// NumericPriorityID constructs a PriorityID from qTest's numeric id.
func NumericPriorityID(n int) PriorityID { return PriorityID{Num: n} }

func (p *PriorityID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		p.Num = n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}
	// Mapper Rule 1 — Total: an unparseable priority_id leaves the zero
	// value rather than failing the whole decode.
	return nil
}

func (p PriorityID) MarshalJSON() ([]byte, error) {
	if p.Name != "" {
		return json.Marshal(p.Name)
	}
	return json.Marshal(p.Num)
}

// NativeStep is one qTest test step.
type NativeStep struct {
	Description string `json:"description"`
	Expected    string `json:"expected_result"`
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which qTest property name a
// canonical custom-field key reads/writes, per spec.md §4.10 rule 6.
// FieldTypes carries the FieldDefinition type for each canonical
// custom-field key so ingestion can coerce the raw property value to
// its canonical shape (Mapper Rule 6). An undeclared key is treated as
// FieldTypeCustom and passed through unchanged.
type Mapper struct {
	FieldMappings map[string]string
	FieldTypes    map[string]canonical.FieldType
}

func (m Mapper) coerceCustomField(canonicalKey string, raw interface{}) interface{} {
	ft, ok := m.FieldTypes[canonicalKey]
	if !ok {
		ft = canonical.FieldTypeCustom
	}
	return canonical.Coerce(ft, raw)
}

// ToTestCase translates a NativeTestCase into the canonical model
// (Mapper Rule 1 — Total: the zero-value NativeTestCase produces a
// valid, default-filled TestCase rather than an error).
func (m Mapper) ToTestCase(id string, native NativeTestCase) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Title = native.Name
	tc.Description = native.Description
	tc.Precondition = native.Precondition
	tc.Status = canonical.NormalizeStatus(lookupStatus(native.StatusID))
	tc.Priority = canonical.NormalizePriority(lookupPriority(native.PriorityID))
	if native.ParentID != 0 {
		tc.FolderID = itoa(native.ParentID)
	}
	tc.Steps = m.ToTestSteps(native.Steps)
	tc.CreatedAt = canonical.Audit{At: parseTime(native.CreatedDate)}
	tc.UpdatedAt = canonical.Audit{At: parseTime(native.LastModified)}

	for k, v := range native.Properties {
		canonicalKey := m.canonicalFieldKey(k)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, v)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into qTest's native
// shape.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeTestCase {
	native := NativeTestCase{
		Name:         tc.Title,
		Description:  tc.Description,
		Precondition: tc.Precondition,
		StatusID:     statusToQTest[canonical.NormalizeStatus(tc.Status)],
		PriorityID:   NumericPriorityID(priorityToQTest[canonical.NormalizePriority(tc.Priority)]),
		Steps:        m.FromTestSteps(tc.Steps),
		Properties:   make(map[string]interface{}, len(tc.CustomFields)),
	}
	if tc.FolderID != "" {
		native.ParentID = atoi(tc.FolderID)
	}
	for k, v := range tc.CustomFields {
		native.Properties[m.nativeFieldKey(k)] = v
	}
	return native
}

// ToTestSteps converts native steps, preserving 1-based sequence order
// (P3 — step order preservation).
func (m Mapper) ToTestSteps(native []NativeStep) []canonical.TestStep {
	steps := make([]canonical.TestStep, 0, len(native))
	for i, n := range native {
		steps = append(steps, canonical.TestStep{
			Sequence:       i + 1,
			Action:         n.Description,
			ExpectedResult: n.Expected,
		})
	}
	return steps
}

// FromTestSteps converts canonical steps back to native order.
func (m Mapper) FromTestSteps(steps []canonical.TestStep) []NativeStep {
	native := make([]NativeStep, 0, len(steps))
	for _, s := range steps {
		native = append(native, NativeStep{Description: s.Action, Expected: s.ExpectedResult})
	}
	return native
}

// NativeRun is one qTest test-run record (the vendor's execution
// record is split across a "test run" shell and a "test log" entry;
// this mapper works against the flattened log view its API exposes).
type NativeRun struct {
	ID           int                    `json:"id"`
	TestCaseID   int                    `json:"test_case_id"`
	TestCycleID  int                    `json:"test_cycle_id"`
	StatusID     int                    `json:"status_id"`
	ExecutedDate string                 `json:"executed_date"`
	ExecutedBy   string                 `json:"executed_by"`
	Note         string                 `json:"note"`
	Properties   map[string]interface{} `json:"properties"`
}

// ToExecution translates a NativeRun into the canonical model.
func (m Mapper) ToExecution(id string, native NativeRun) canonical.TestExecution {
	exec := canonical.TestExecution{
		ID:         id,
		TestCaseID: itoa(native.TestCaseID),
		CycleID:    itoa(native.TestCycleID),
		Status:     canonical.NormalizeExecutionStatus(lookupExecutionStatus(native.StatusID)),
		Timestamp:  parseTime(native.ExecutedDate),
		Executor:   canonical.UserRef{ID: native.ExecutedBy},
		Comment:    native.Note,
	}
	if len(native.Properties) > 0 {
		exec.CustomFields = make(map[string]interface{}, len(native.Properties))
		for k, v := range native.Properties {
			canonicalKey := m.canonicalFieldKey(k)
			exec.CustomFields[canonicalKey] = m.coerceCustomField(canonicalKey, v)
		}
	}
	return exec
}

// FromExecution translates a canonical TestExecution back into qTest's
// native run shape.
func (m Mapper) FromExecution(exec canonical.TestExecution) NativeRun {
	return NativeRun{
		TestCaseID:  atoi(exec.TestCaseID),
		TestCycleID: atoi(exec.CycleID),
		StatusID:    executionStatusToQTest[canonical.NormalizeExecutionStatus(exec.Status)],
		ExecutedDate: exec.Timestamp.Format(time.RFC3339),
		ExecutedBy:   exec.Executor.ID,
		Note:         exec.Comment,
	}
}

func (m Mapper) canonicalFieldKey(nativeKey string) string {
	for canonicalKey, mapped := range m.FieldMappings {
		if mapped == nativeKey {
			return canonicalKey
		}
	}
	return nativeKey
}

func (m Mapper) nativeFieldKey(canonicalKey string) string {
	if mapped, ok := m.FieldMappings[canonicalKey]; ok {
		return mapped
	}
	return canonicalKey
}

func lookupStatus(id int) canonical.Status {
	if s, ok := statusFromQTest[id]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(id PriorityID) canonical.Priority {
	if id.Name != "" {
		if p, ok := priorityNameFromQTest[strings.ToLower(id.Name)]; ok {
			return p
		}
	}
	if p, ok := priorityFromQTest[id.Num]; ok {
		return p
	}
	return canonical.DefaultPriority
}

func lookupExecutionStatus(id int) canonical.ExecutionStatus {
	if s, ok := executionStatusFromQTest[id]; ok {
		return s
	}
	return canonical.DefaultExecutionStatus
}

// parseTime parses an RFC3339 vendor timestamp, returning the zero
// time.Time on any malformed or empty input rather than erroring
// (Mapper Rule 1 — Total).
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// itoa/atoi keep qTest's integer ids at the API boundary while every
// canonical id stays a string (Mapper Rule 1 — a malformed id string
// becomes 0, never an error).
func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
