// Package rally implements the Provider Mapper and Adapter for Rally
// (CA Agile Central / Broadcom Rally, spec.md §4.10/§4.11). Rally's
// TestCase object has no concept of a lifecycle status field at all
// (spec.md Open Question, resolved here — see DESIGN.md); status is
// synthesized from whether the test case has any TestCaseResult at
// all, not read back from a vendor field.
package rally

import (
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

// priorityFromRally maps Rally's free-text Priority field.
var priorityFromRally = map[string]canonical.Priority{
	"Highest": canonical.PriorityCritical,
	"High":    canonical.PriorityHigh,
	"Normal":  canonical.PriorityMedium,
	"Low":     canonical.PriorityLow,
}

var priorityToRally = invertPriority(priorityFromRally)

// executionStatusFromRally maps Rally's TestCaseResult Verdict field.
var executionStatusFromRally = map[string]canonical.ExecutionStatus{
	"Pass":        canonical.ExecutionPassed,
	"Fail":        canonical.ExecutionFailed,
	"Error":       canonical.ExecutionBlocked,
	"N/A":         canonical.ExecutionNotApplicable,
}

var executionStatusToRally = invertExecutionStatus(executionStatusFromRally)

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

// NativeTestCase is the shape of one Rally TestCase object (trimmed to
// the fields this mapper consumes).
type NativeTestCase struct {
	FormattedID string                 `json:"FormattedID"`
	Name        string                 `json:"Name"`
	Description string                 `json:"Description"`
	Method      string                 `json:"Method"`
	Priority    string                 `json:"Priority"`
	Steps       []NativeStep           `json:"Steps"`
	HasResults  bool                   `json:"HasResults"`
	Custom      map[string]interface{} `json:"c_CustomFields"`
	CreationDate string                `json:"CreationDate"`
	LastUpdateDate string              `json:"LastUpdateDate"`
}

// NativeStep is one Rally TestCaseStep.
type NativeStep struct {
	Input          string `json:"Input"`
	ExpectedResult string `json:"ExpectedResult"`
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which Rally custom-field key a
// canonical custom-field key reads/writes, per spec.md §4.10 rule 6.
// FieldTypes carries the FieldDefinition type for each canonical
// custom-field key so ingestion can coerce the raw value to its
// canonical shape (Mapper Rule 6). An undeclared key is treated as
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
// (Mapper Rule 1 — Total: a zero-value NativeTestCase still produces a
// valid, default-filled TestCase).
//
// Status is synthesized rather than read from a vendor field: a test
// case with at least one recorded result is APPROVED (it has been run
// and is presumed reviewed), otherwise DRAFT.
func (m Mapper) ToTestCase(id string, native NativeTestCase) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Key = native.FormattedID
	tc.Title = native.Name
	tc.Description = native.Description
	tc.Priority = canonical.NormalizePriority(lookupPriority(native.Priority))
	if native.HasResults {
		tc.Status = canonical.StatusApproved
	} else {
		tc.Status = canonical.StatusDraft
	}
	tc.Steps = m.ToTestSteps(native.Steps)
	tc.CreatedAt = canonical.Audit{At: parseTime(native.CreationDate)}
	tc.UpdatedAt = canonical.Audit{At: parseTime(native.LastUpdateDate)}

	for k, v := range native.Custom {
		canonicalKey := m.canonicalFieldKey(k)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, v)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into Rally's
// native shape. Rally has no status field, so FromTestCase sets
// HasResults from tc.Status (true for APPROVED, false otherwise), the
// inverse of the synthesis in ToTestCase.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeTestCase {
	native := NativeTestCase{
		FormattedID: tc.Key,
		Name:        tc.Title,
		Description: tc.Description,
		Priority:    priorityToRally[canonical.NormalizePriority(tc.Priority)],
		Steps:       m.FromTestSteps(tc.Steps),
		HasResults:  tc.Status == canonical.StatusApproved,
		Custom:      make(map[string]interface{}, len(tc.CustomFields)),
	}
	for k, v := range tc.CustomFields {
		native.Custom[m.nativeFieldKey(k)] = v
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
			Action:         n.Input,
			ExpectedResult: n.ExpectedResult,
		})
	}
	return steps
}

// FromTestSteps converts canonical steps back to native order.
func (m Mapper) FromTestSteps(steps []canonical.TestStep) []NativeStep {
	native := make([]NativeStep, 0, len(steps))
	for _, s := range steps {
		native = append(native, NativeStep{Input: s.Action, ExpectedResult: s.ExpectedResult})
	}
	return native
}

// NativeResult is one Rally TestCaseResult object.
type NativeResult struct {
	FormattedID string                 `json:"FormattedID"`
	TestCase    string                 `json:"TestCase"`
	Build       string                 `json:"Build"`
	Verdict     string                 `json:"Verdict"`
	Date        string                 `json:"Date"`
	Tester      string                 `json:"Tester"`
	Notes       string                 `json:"Notes"`
	Custom      map[string]interface{} `json:"c_CustomFields"`
}

// ToExecution translates a NativeResult into the canonical model.
func (m Mapper) ToExecution(id string, native NativeResult) canonical.TestExecution {
	exec := canonical.TestExecution{
		ID:          id,
		TestCaseID:  native.TestCase,
		Status:      canonical.NormalizeExecutionStatus(lookupExecutionStatus(native.Verdict)),
		Timestamp:   parseTime(native.Date),
		Executor:    canonical.UserRef{ID: native.Tester},
		Environment: native.Build,
		Comment:     native.Notes,
	}
	if len(native.Custom) > 0 {
		exec.CustomFields = make(map[string]interface{}, len(native.Custom))
		for k, v := range native.Custom {
			canonicalKey := m.canonicalFieldKey(k)
			exec.CustomFields[canonicalKey] = m.coerceCustomField(canonicalKey, v)
		}
	}
	return exec
}

// FromExecution translates a canonical TestExecution back into Rally's
// native result shape.
func (m Mapper) FromExecution(exec canonical.TestExecution) NativeResult {
	return NativeResult{
		TestCase: exec.TestCaseID,
		Build:    exec.Environment,
		Verdict:  executionStatusToRally[canonical.NormalizeExecutionStatus(exec.Status)],
		Date:     exec.Timestamp.Format(time.RFC3339),
		Tester:   exec.Executor.ID,
		Notes:    exec.Comment,
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

func lookupPriority(native string) canonical.Priority {
	if p, ok := priorityFromRally[native]; ok {
		return p
	}
	return canonical.DefaultPriority
}

func lookupExecutionStatus(native string) canonical.ExecutionStatus {
	if s, ok := executionStatusFromRally[native]; ok {
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
