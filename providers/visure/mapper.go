// Package visure implements the Provider Mapper and Adapter for Visure
// Requirements ALM (spec.md §4.10/§4.11). Visure exposes its REST API
// as ReqIF-flavored XML-in-JSON: test specifications are requirements
// objects tagged with a "TestCase" type, and steps live as nested
// child objects rather than an array field, so this mapper flattens
// that tree into the canonical model's ordered TestStep list.
package visure

import (
	"time"

	"github.com/heymumford/skidbladnir/canonical"
)

// statusFromVisure maps Visure's requirement state attribute.
var statusFromVisure = map[string]canonical.Status{
	"Proposed":  canonical.StatusDraft,
	"Draft":     canonical.StatusDraft,
	"Reviewed":  canonical.StatusReadyForReview,
	"Approved":  canonical.StatusApproved,
	"Rejected":  canonical.StatusNeedsWork,
	"Obsolete":  canonical.StatusDeprecated,
}

var statusToVisure = invertStatus(statusFromVisure)

// priorityFromVisure maps Visure's numeric 1-4 priority attribute.
var priorityFromVisure = map[int]canonical.Priority{
	1: canonical.PriorityCritical,
	2: canonical.PriorityHigh,
	3: canonical.PriorityMedium,
	4: canonical.PriorityLow,
}

var priorityToVisure = invertPriority(priorityFromVisure)

func invertStatus(m map[string]canonical.Status) map[canonical.Status]string {
	out := make(map[canonical.Status]string, len(m))
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

// NativeStep is one child test-step object under a Visure test
// specification requirement.
type NativeStep struct {
	Position    int    `json:"position"`
	Action      string `json:"action"`
	Expected    string `json:"expectedResult"`
}

// NativeTestCase is the shape of one Visure test-specification
// requirement object.
type NativeTestCase struct {
	UID          string                 `json:"uid"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	State        string                 `json:"state"`
	Priority     int                    `json:"priority"`
	ParentUID    string                 `json:"parentUid"`
	Steps        []NativeStep           `json:"children"`
	Attributes   map[string]interface{} `json:"attributes"`
	CreationDate string                 `json:"creationDate"`
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which Visure attribute key a
// canonical custom-field key reads/writes, per spec.md §4.10 rule 6.
// FieldTypes carries the FieldDefinition type for each canonical
// custom-field key so ingestion can coerce the raw attribute value to
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
// (Mapper Rule 1 — Total: a zero-value NativeTestCase still produces a
// valid, default-filled TestCase).
func (m Mapper) ToTestCase(id string, native NativeTestCase) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Title = native.Title
	tc.Description = native.Description
	tc.Status = canonical.NormalizeStatus(lookupStatus(native.State))
	tc.Priority = canonical.NormalizePriority(lookupPriority(native.Priority))
	tc.FolderID = native.ParentUID
	tc.Steps = m.ToTestSteps(native.Steps)
	tc.CreatedAt = canonical.Audit{At: parseTime(native.CreationDate)}

	for k, v := range native.Attributes {
		canonicalKey := m.canonicalFieldKey(k)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, v)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into Visure's
// native requirement shape.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeTestCase {
	native := NativeTestCase{
		UID:         tc.ID,
		Title:       tc.Title,
		Description: tc.Description,
		State:       statusToVisure[canonical.NormalizeStatus(tc.Status)],
		Priority:    priorityToVisure[canonical.NormalizePriority(tc.Priority)],
		ParentUID:   tc.FolderID,
		Steps:       m.FromTestSteps(tc.Steps),
		Attributes:  make(map[string]interface{}, len(tc.CustomFields)),
	}
	for k, v := range tc.CustomFields {
		native.Attributes[m.nativeFieldKey(k)] = v
	}
	return native
}

// ToTestSteps sorts native child steps by Position (Visure children
// are not guaranteed return-ordered) and renumbers them 1-based
// (P3 — step order preservation).
func (m Mapper) ToTestSteps(native []NativeStep) []canonical.TestStep {
	ordered := append([]NativeStep(nil), native...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Position < ordered[j-1].Position; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	steps := make([]canonical.TestStep, 0, len(ordered))
	for i, n := range ordered {
		steps = append(steps, canonical.TestStep{Sequence: i + 1, Action: n.Action, ExpectedResult: n.Expected})
	}
	return steps
}

// FromTestSteps converts canonical steps back to native child objects
// with an explicit Position.
func (m Mapper) FromTestSteps(steps []canonical.TestStep) []NativeStep {
	native := make([]NativeStep, 0, len(steps))
	for i, s := range steps {
		native = append(native, NativeStep{Position: i + 1, Action: s.Action, Expected: s.ExpectedResult})
	}
	return native
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
	if s, ok := statusFromVisure[native]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(native int) canonical.Priority {
	if p, ok := priorityFromVisure[native]; ok {
		return p
	}
	return canonical.DefaultPriority
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
