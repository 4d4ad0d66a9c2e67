// Package zephyr implements the Provider Mapper and Adapter for Zephyr
// Scale (spec.md §4.10/§4.11), the reference vendor for the canonical
// model's REST-JSON shape. Mapping follows the fixed enum-table rule
// (Mapper Rule 4): unknown vendor tokens fall back to the canonical
// default rather than propagating an invalid value.
package zephyr

import (
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

// statusFromZephyr maps Zephyr Scale's status field to the canonical
// Status enum. Unknown tokens fall back to canonical.DefaultStatus.
var statusFromZephyr = map[string]canonical.Status{
	"Draft":      canonical.StatusDraft,
	"Approved":   canonical.StatusApproved,
	"Deprecated": canonical.StatusDeprecated,
	"In Review":  canonical.StatusReadyForReview,
	"Needs Work": canonical.StatusNeedsWork,
}

var statusToZephyr = invertStatus(statusFromZephyr)

// priorityFromZephyr maps Zephyr Scale's priority field.
var priorityFromZephyr = map[string]canonical.Priority{
	"Highest": canonical.PriorityCritical,
	"High":    canonical.PriorityHigh,
	"Normal":  canonical.PriorityMedium,
	"Low":     canonical.PriorityLow,
}

var priorityToZephyr = invertPriority(priorityFromZephyr)

// executionStatusFromZephyr maps Zephyr Scale's test-execution status.
var executionStatusFromZephyr = map[string]canonical.ExecutionStatus{
	"Pass":       canonical.ExecutionPassed,
	"Fail":       canonical.ExecutionFailed,
	"Blocked":    canonical.ExecutionBlocked,
	"Not Executed": canonical.ExecutionOpen,
	"N/A":        canonical.ExecutionNotApplicable,
}

var executionStatusToZephyr = invertExecutionStatus(executionStatusFromZephyr)

func invertStatus(m map[string]canonical.Status) map[canonical.Status]string {
	out := make(map[canonical.Status]string, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

func invertPriority(m map[string]canonical.Priority) map[canonical.Priority]string {
	out := make(map[canonical.Priority]string, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

func invertExecutionStatus(m map[string]canonical.ExecutionStatus) map[canonical.ExecutionStatus]string {
	out := make(map[canonical.ExecutionStatus]string, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

// NativeTestCase is the shape of one Zephyr Scale test case as returned
// by its REST API (trimmed to the fields this mapper consumes).
type NativeTestCase struct {
	Key          string                 `json:"key"`
	Name         string                 `json:"name"`
	Objective    string                 `json:"objective"`
	Precondition string                 `json:"precondition"`
	Status       string                 `json:"status"`
	Priority     string                 `json:"priority"`
	FolderID     string                 `json:"folderId"`
	Labels       []string               `json:"labels"`
	Steps        []NativeStep           `json:"testScript"`
	CustomFields map[string]interface{} `json:"customFields"`
	CreatedOn    string                 `json:"createdOn"`
	UpdatedOn    string                 `json:"updatedOn"`
}

// NativeStep is one Zephyr Scale test step.
type NativeStep struct {
	Description string `json:"description"`
	ExpectedResult string `json:"expectedResult"`
	TestData    string `json:"testData"`
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which vendor custom-field key a
// canonical custom-field key reads/writes, per spec.md §4.10 rule 6.
// FieldTypes carries the FieldDefinition type for each canonical
// custom-field key (as returned by GetFieldDefinitions) so that
// ingestion can coerce the raw vendor value to its canonical shape
// (Mapper Rule 6 — field-type coercion). A key with no entry is
// treated as FieldTypeCustom and passed through unchanged.
type Mapper struct {
	FieldMappings map[string]string
	FieldTypes    map[string]canonical.FieldType
}

// coerceCustomField routes a raw custom-field value through
// canonical.Coerce using this mapper's declared FieldTypes, defaulting
// to FieldTypeCustom (pass-through) when the key's type is unknown.
func (m Mapper) coerceCustomField(canonicalKey string, raw interface{}) interface{} {
	ft, ok := m.FieldTypes[canonicalKey]
	if !ok {
		ft = canonical.FieldTypeCustom
	}
	return canonical.Coerce(ft, raw)
}

// ToTestCase translates a NativeTestCase into the canonical model
// (Mapper Rule 1 — Total: any zero-value NativeTestCase produces a
// valid, default-filled TestCase rather than an error).
func (m Mapper) ToTestCase(id string, native NativeTestCase) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Key = native.Key
	tc.Title = native.Name
	tc.Objective = native.Objective
	tc.Precondition = native.Precondition
	tc.Status = canonical.NormalizeStatus(lookupStatus(native.Status))
	tc.Priority = canonical.NormalizePriority(lookupPriority(native.Priority))
	tc.FolderID = native.FolderID
	tc.Labels = append([]string(nil), native.Labels...)
	tc.Steps = m.ToTestSteps(native.Steps)
	tc.CreatedAt = canonical.Audit{At: parseTime(native.CreatedOn)}
	tc.UpdatedAt = canonical.Audit{At: parseTime(native.UpdatedOn)}

	for k, v := range native.CustomFields {
		canonicalKey := m.canonicalFieldKey(k)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, v)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into Zephyr
// Scale's native shape.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeTestCase {
	native := NativeTestCase{
		Key:          tc.Key,
		Name:         tc.Title,
		Objective:    tc.Objective,
		Precondition: tc.Precondition,
		Status:       statusToZephyr[canonical.NormalizeStatus(tc.Status)],
		Priority:     priorityToZephyr[canonical.NormalizePriority(tc.Priority)],
		FolderID:     tc.FolderID,
		Labels:       append([]string(nil), tc.Labels...),
		Steps:        m.FromTestSteps(tc.Steps),
		CustomFields: make(map[string]interface{}, len(tc.CustomFields)),
	}
	for k, v := range tc.CustomFields {
		native.CustomFields[m.nativeFieldKey(k)] = v
	}
	return native
}

// ToTestSteps converts native steps, preserving 1-based sequence order
// (P3/Mapper Rule 2 — step order preservation).
func (m Mapper) ToTestSteps(native []NativeStep) []canonical.TestStep {
	steps := make([]canonical.TestStep, 0, len(native))
	for i, n := range native {
		steps = append(steps, canonical.TestStep{
			Sequence:       i + 1,
			Action:         n.Description,
			ExpectedResult: n.ExpectedResult,
			TestData:       n.TestData,
		})
	}
	return steps
}

// FromTestSteps converts canonical steps back to native order.
func (m Mapper) FromTestSteps(steps []canonical.TestStep) []NativeStep {
	ordered := append([]canonical.TestStep(nil), steps...)
	native := make([]NativeStep, 0, len(ordered))
	for _, s := range ordered {
		native = append(native, NativeStep{
			Description:    s.Action,
			ExpectedResult: s.ExpectedResult,
			TestData:       s.TestData,
		})
	}
	return native
}

// NativeExecution is one Zephyr Scale test-execution record.
type NativeExecution struct {
	Key         string                 `json:"key"`
	TestCaseKey string                 `json:"testCaseKey"`
	CycleKey    string                 `json:"testCycleKey"`
	Status      string                 `json:"status"`
	ExecutedOn  string                 `json:"executedOn"`
	ExecutedBy  string                 `json:"executedBy"`
	Environment string                 `json:"environment"`
	Comment     string                 `json:"comment"`
	CustomFields map[string]interface{} `json:"customFields"`
}

// ToExecution translates a NativeExecution into the canonical model.
func (m Mapper) ToExecution(id string, native NativeExecution) canonical.TestExecution {
	exec := canonical.TestExecution{
		ID:          id,
		TestCaseID:  native.TestCaseKey,
		CycleID:     native.CycleKey,
		Status:      canonical.NormalizeExecutionStatus(lookupExecutionStatus(native.Status)),
		Timestamp:   parseTime(native.ExecutedOn),
		Executor:    canonical.UserRef{ID: native.ExecutedBy},
		Environment: native.Environment,
		Comment:     native.Comment,
	}
	if len(native.CustomFields) > 0 {
		exec.CustomFields = make(map[string]interface{}, len(native.CustomFields))
		for k, v := range native.CustomFields {
			canonicalKey := m.canonicalFieldKey(k)
			exec.CustomFields[canonicalKey] = m.coerceCustomField(canonicalKey, v)
		}
	}
	return exec
}

// FromExecution translates a canonical TestExecution back to Zephyr
// Scale's native shape.
func (m Mapper) FromExecution(exec canonical.TestExecution) NativeExecution {
	return NativeExecution{
		TestCaseKey: exec.TestCaseID,
		CycleKey:    exec.CycleID,
		Status:      executionStatusToZephyr[canonical.NormalizeExecutionStatus(exec.Status)],
		ExecutedOn:  exec.Timestamp.Format(time.RFC3339),
		ExecutedBy:  exec.Executor.ID,
		Environment: exec.Environment,
		Comment:     exec.Comment,
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

func lookupStatus(native string) canonical.Status {
	if s, ok := statusFromZephyr[native]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(native string) canonical.Priority {
	if p, ok := priorityFromZephyr[native]; ok {
		return p
	}
	return canonical.DefaultPriority
}

func lookupExecutionStatus(native string) canonical.ExecutionStatus {
	if s, ok := executionStatusFromZephyr[native]; ok {
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
