// Package hpalm implements the Provider Mapper and Adapter for HP ALM
// / Micro Focus ALM Octane (spec.md §4.10/§4.11). ALM's REST API
// returns entity fields as a flat "fields" array of {Name, values:
// [string, ...]} pairs rather than a plain JSON object, so this mapper's
// native shape models that envelope directly.
package hpalm

import (
	"fmt"
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

// statusFromALM maps ALM's status field to the canonical Status enum.
var statusFromALM = map[string]canonical.Status{
	"Draft":     canonical.StatusDraft,
	"Design":    canonical.StatusDraft,
	"Ready":     canonical.StatusApproved,
	"Reviewed":  canonical.StatusApproved,
	"Obsolete":  canonical.StatusDeprecated,
}

var statusToALM = invertStatus(statusFromALM)

// priorityFromALM maps ALM's 1-5 text priority levels.
var priorityFromALM = map[string]canonical.Priority{
	"5-Urgent": canonical.PriorityCritical,
	"4-Very High": canonical.PriorityHigh,
	"3-High":      canonical.PriorityHigh,
	"2-Medium":    canonical.PriorityMedium,
	"1-Low":       canonical.PriorityLow,
}

var priorityToALM = invertPriority(priorityFromALM)

// executionStatusFromALM maps ALM's run status field.
var executionStatusFromALM = map[string]canonical.ExecutionStatus{
	"Passed":     canonical.ExecutionPassed,
	"Failed":     canonical.ExecutionFailed,
	"Blocked":    canonical.ExecutionBlocked,
	"N/A":        canonical.ExecutionNotApplicable,
	"Not Completed": canonical.ExecutionOpen,
}

var executionStatusToALM = invertExecutionStatus(executionStatusFromALM)

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

// NativeField is one {Name, values} entry of ALM's field envelope.
type NativeField struct {
	Name   string   `json:"Name"`
	Values []string `json:"values"`
}

// NativeEntity is the shape of one ALM REST entity.
type NativeEntity struct {
	ID     string        `json:"id"`
	Fields []NativeField `json:"fields"`
}

func (n NativeEntity) field(name string) string {
	for _, f := range n.Fields {
		if f.Name == name && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

func setField(fields []NativeField, name, value string) []NativeField {
	return append(fields, NativeField{Name: name, Values: []string{value}})
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which ALM field name a
// canonical custom-field key reads/writes, per spec.md §4.10 rule 6.
// FieldTypes carries the FieldDefinition type for each canonical
// custom-field key so ingestion can coerce the raw field value to its
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

// ToTestCase translates a NativeEntity into the canonical model
// (Mapper Rule 1 — Total: an entity with no matching fields still
// produces a valid, default-filled TestCase).
func (m Mapper) ToTestCase(id string, native NativeEntity) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Title = native.field("name")
	tc.Description = native.field("description")
	tc.Precondition = native.field("precondition")
	tc.Status = canonical.NormalizeStatus(lookupStatus(native.field("status")))
	tc.Priority = canonical.NormalizePriority(lookupPriority(native.field("priority")))
	tc.FolderID = native.field("parent-id")
	tc.CreatedAt = canonical.Audit{At: parseTime(native.field("creation-time"))}

	for _, f := range native.Fields {
		if isKnownField(f.Name) || len(f.Values) == 0 {
			continue
		}
		canonicalKey := m.canonicalFieldKey(f.Name)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, f.Values[0])
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into ALM's native
// field-envelope shape.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeEntity {
	var fields []NativeField
	fields = setField(fields, "name", tc.Title)
	fields = setField(fields, "description", tc.Description)
	fields = setField(fields, "precondition", tc.Precondition)
	fields = setField(fields, "status", statusToALM[canonical.NormalizeStatus(tc.Status)])
	fields = setField(fields, "priority", priorityToALM[canonical.NormalizePriority(tc.Priority)])
	if tc.FolderID != "" {
		fields = setField(fields, "parent-id", tc.FolderID)
	}
	for k, v := range tc.CustomFields {
		fields = setField(fields, m.nativeFieldKey(k), stringifyCustomField(v))
	}
	return NativeEntity{ID: tc.ID, Fields: fields}
}

// stringifyCustomField renders a (possibly coerced) custom-field value
// back into ALM's string-only field envelope.
func stringifyCustomField(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isKnownField(name string) bool {
	switch name {
	case "name", "description", "precondition", "status", "priority", "parent-id", "creation-time":
		return true
	default:
		return false
	}
}

// NativeRun is one ALM Run entity.
type NativeRun struct {
	ID     string        `json:"id"`
	Fields []NativeField `json:"fields"`
}

func (n NativeRun) field(name string) string {
	for _, f := range n.Fields {
		if f.Name == name && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

// ToExecution translates a NativeRun into the canonical model.
func (m Mapper) ToExecution(id string, native NativeRun) canonical.TestExecution {
	return canonical.TestExecution{
		ID:         id,
		TestCaseID: native.field("test-id"),
		CycleID:    native.field("testcycl-id"),
		Status:     canonical.NormalizeExecutionStatus(lookupExecutionStatus(native.field("status"))),
		Timestamp:  parseTime(native.field("execution-date")),
		Executor:   canonical.UserRef{ID: native.field("owner")},
		Comment:    native.field("comment"),
	}
}

// FromExecution translates a canonical TestExecution back into ALM's
// native run shape.
func (m Mapper) FromExecution(exec canonical.TestExecution) NativeRun {
	var fields []NativeField
	fields = setField(fields, "test-id", exec.TestCaseID)
	fields = setField(fields, "testcycl-id", exec.CycleID)
	fields = setField(fields, "status", executionStatusToALM[canonical.NormalizeExecutionStatus(exec.Status)])
	fields = setField(fields, "execution-date", exec.Timestamp.Format("2006-01-02"))
	fields = setField(fields, "owner", exec.Executor.ID)
	fields = setField(fields, "comment", exec.Comment)
	return NativeRun{ID: exec.ID, Fields: fields}
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
	if s, ok := statusFromALM[native]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(native string) canonical.Priority {
	if p, ok := priorityFromALM[native]; ok {
		return p
	}
	return canonical.DefaultPriority
}

func lookupExecutionStatus(native string) canonical.ExecutionStatus {
	if s, ok := executionStatusFromALM[native]; ok {
		return s
	}
	return canonical.DefaultExecutionStatus
}

// parseTime parses an ALM date (yyyy-MM-dd, no time component),
// returning the zero time.Time on any malformed or empty input rather
// than erroring (Mapper Rule 1 — Total).
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
