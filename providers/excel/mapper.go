// Package excel implements the Provider Mapper and Adapter for "Excel
// exports" (spec.md §4.10/§4.11): flat tabular dumps of test cases that
// test-management tools emit for offline review. The wire format here
// is CSV rather than a binary .xlsx workbook — the retrieved corpus
// carries no spreadsheet library, and CSV is what every vendor's
// "export to Excel" button actually produces under the hood (Excel
// opens CSV natively). One row is one test case; a pipe-delimited
// "steps" column holds the ordered step list, since CSV has no nested
// structure of its own.
package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

var statusFromExcel = map[string]canonical.Status{
	"Draft":             canonical.StatusDraft,
	"Ready for Review":  canonical.StatusReadyForReview,
	"Needs Work":        canonical.StatusNeedsWork,
	"Approved":          canonical.StatusApproved,
	"Deprecated":        canonical.StatusDeprecated,
}

var statusToExcel = invertStatus(statusFromExcel)

var priorityFromExcel = map[string]canonical.Priority{
	"Critical": canonical.PriorityCritical,
	"High":     canonical.PriorityHigh,
	"Medium":   canonical.PriorityMedium,
	"Low":      canonical.PriorityLow,
}

var priorityToExcel = invertPriority(priorityFromExcel)

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

// stepDelimiter separates steps within the "steps" column; fieldDelimiter
// separates Action/Expected/TestData within one step.
const stepDelimiter = "||"
const fieldDelimiter = "::"

// Row is one line of the export, already split into named columns. The
// header row drives the column-to-field mapping via FieldMappings (with
// the default column names as fallback); any other header is carried as
// a custom field.
type Row struct {
	Columns map[string]string
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings maps a canonical field key to the export's column
// header, per spec.md §4.10 rule 6. FieldTypes carries the
// FieldDefinition type for each canonical custom-field key so
// ingestion can coerce the column's string cell value to its
// canonical shape (Mapper Rule 6). An undeclared key is treated as
// FieldTypeCustom and passed through as the raw string.
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

// ToTestCase translates one export Row into the canonical model
// (Mapper Rule 1 — Total: a row missing every known column still
// produces a valid, default-filled TestCase).
func (m Mapper) ToTestCase(id string, row Row) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Title = row.Columns[m.col("title", "Title")]
	tc.Description = row.Columns[m.col("description", "Description")]
	tc.Precondition = row.Columns[m.col("precondition", "Precondition")]
	tc.Status = canonical.NormalizeStatus(lookupStatus(row.Columns[m.col("status", "Status")]))
	tc.Priority = canonical.NormalizePriority(lookupPriority(row.Columns[m.col("priority", "Priority")]))
	tc.FolderID = row.Columns[m.col("folderId", "Folder")]
	tc.Steps = ParseSteps(row.Columns[m.col("steps", "Steps")])
	tc.CreatedAt = canonical.Audit{At: parseTime(row.Columns[m.col("createdAt", "Created Date")])}

	known := map[string]bool{}
	for _, h := range [][2]string{
		{"title", "Title"}, {"description", "Description"}, {"precondition", "Precondition"},
		{"status", "Status"}, {"priority", "Priority"}, {"folderId", "Folder"},
		{"steps", "Steps"}, {"createdAt", "Created Date"},
	} {
		known[m.col(h[0], h[1])] = true
	}
	for header, value := range row.Columns {
		if known[header] || value == "" {
			continue
		}
		canonicalKey := m.canonicalFieldKey(header)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, value)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into an export Row.
func (m Mapper) FromTestCase(tc canonical.TestCase) Row {
	row := Row{Columns: map[string]string{
		m.col("title", "Title"):             tc.Title,
		m.col("description", "Description"): tc.Description,
		m.col("precondition", "Precondition"): tc.Precondition,
		m.col("status", "Status"):           statusToExcel[canonical.NormalizeStatus(tc.Status)],
		m.col("priority", "Priority"):       priorityToExcel[canonical.NormalizePriority(tc.Priority)],
		m.col("folderId", "Folder"):         tc.FolderID,
		m.col("steps", "Steps"):             SerializeSteps(tc.Steps),
	}}
	for k, v := range tc.CustomFields {
		row.Columns[m.nativeFieldKey(k)] = stringifyCustomField(v)
	}
	return row
}

// stringifyCustomField renders a (possibly coerced) custom-field value
// back into the export's string-only cell shape.
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

// ParseSteps splits the pipe-delimited steps column into an ordered
// list. A malformed or empty blob yields an empty list, never an error
// (Mapper Rule 1 — Total).
func ParseSteps(blob string) []canonical.TestStep {
	if blob == "" {
		return nil
	}
	parts := strings.Split(blob, stepDelimiter)
	steps := make([]canonical.TestStep, 0, len(parts))
	for i, p := range parts {
		fields := strings.SplitN(p, fieldDelimiter, 3)
		step := canonical.TestStep{Sequence: i + 1}
		if len(fields) > 0 {
			step.Action = fields[0]
		}
		if len(fields) > 1 {
			step.ExpectedResult = fields[1]
		}
		if len(fields) > 2 {
			step.TestData = fields[2]
		}
		steps = append(steps, step)
	}
	return steps
}

// SerializeSteps renders canonical steps back to the same delimited
// shape ParseSteps reads.
func SerializeSteps(steps []canonical.TestStep) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, strings.Join([]string{s.Action, s.ExpectedResult, s.TestData}, fieldDelimiter))
	}
	return strings.Join(parts, stepDelimiter)
}

func (m Mapper) col(canonicalKey, fallback string) string {
	if mapped, ok := m.FieldMappings[canonicalKey]; ok {
		return mapped
	}
	return fallback
}

func (m Mapper) canonicalFieldKey(header string) string {
	for canonicalKey, mapped := range m.FieldMappings {
		if mapped == header {
			return canonicalKey
		}
	}
	return header
}

func (m Mapper) nativeFieldKey(canonicalKey string) string {
	if mapped, ok := m.FieldMappings[canonicalKey]; ok {
		return mapped
	}
	return canonicalKey
}

func lookupStatus(native string) canonical.Status {
	if s, ok := statusFromExcel[native]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(native string) canonical.Priority {
	if p, ok := priorityFromExcel[native]; ok {
		return p
	}
	return canonical.DefaultPriority
}

// parseTime parses an export date cell, trying RFC3339 first and
// falling back to a bare date, returning the zero time.Time on any
// other malformed or empty input rather than erroring (Mapper Rule 1).
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// rowNumber renders a 1-based row index for diagnostic ids when a row
// carries no usable id column of its own.
func rowNumber(i int) string {
	return strconv.Itoa(i + 1)
}
