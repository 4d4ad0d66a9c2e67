// Package azuredevops implements the Provider Mapper and Adapter for
// Azure DevOps Test Plans (spec.md §4.10/§4.11). Azure DevOps stores a
// test case's steps as one escaped HTML blob on the work item's
// Microsoft.VSTS.TCM.Steps field rather than a structured list, so this
// mapper parses and serializes that HTML fragment (Mapper Rule 5).
package azuredevops

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/heymumford/skidbladnir/canonical"
)

// statusFromADO maps Azure DevOps' work item state to the canonical
// Status enum. Unknown states fall back to canonical.DefaultStatus.
var statusFromADO = map[string]canonical.Status{
	"Design":   canonical.StatusDraft,
	"Ready":    canonical.StatusApproved,
	"Closed":   canonical.StatusApproved,
	"Obsolete": canonical.StatusDeprecated,
}

var statusToADO = invertStatus(statusFromADO)

// priorityFromADO maps Azure DevOps' 1-4 integer priority field.
var priorityFromADO = map[int]canonical.Priority{
	1: canonical.PriorityCritical,
	2: canonical.PriorityHigh,
	3: canonical.PriorityMedium,
	4: canonical.PriorityLow,
}

var priorityToADO = invertPriority(priorityFromADO)

// executionStatusFromADO maps Azure DevOps' test-result outcome field.
var executionStatusFromADO = map[string]canonical.ExecutionStatus{
	"Passed":      canonical.ExecutionPassed,
	"Failed":      canonical.ExecutionFailed,
	"Blocked":     canonical.ExecutionBlocked,
	"NotApplicable": canonical.ExecutionNotApplicable,
	"NotExecuted": canonical.ExecutionOpen,
}

var executionStatusToADO = invertExecutionStatus(executionStatusFromADO)

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

func invertExecutionStatus(m map[string]canonical.ExecutionStatus) map[canonical.ExecutionStatus]string {
	out := make(map[canonical.ExecutionStatus]string, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

// NativeWorkItem is the shape of one Azure DevOps Test Case work item
// (trimmed to the fields this mapper consumes).
type NativeWorkItem struct {
	ID     int                    `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

func (n NativeWorkItem) stringField(key string) string {
	v, _ := n.Fields[key].(string)
	return v
}

func (n NativeWorkItem) floatField(key string) float64 {
	v, _ := n.Fields[key].(float64)
	return v
}

// Mapper implements the bidirectional translation for this vendor.
// FieldMappings lets a caller override which work item field name a
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

// ToTestCase translates a NativeWorkItem into the canonical model
// (Mapper Rule 1 — Total: a work item missing every field of interest
// still produces a valid, default-filled TestCase).
func (m Mapper) ToTestCase(id string, native NativeWorkItem) canonical.TestCase {
	tc := *canonical.NewTestCase(id)
	tc.Title = native.stringField("System.Title")
	tc.Precondition = stripHTML(native.stringField("Microsoft.VSTS.TCM.Precondition"))
	tc.Status = canonical.NormalizeStatus(lookupStatus(native.stringField("System.State")))
	tc.Priority = canonical.NormalizePriority(lookupPriority(int(native.floatField("Microsoft.VSTS.Common.Priority"))))
	tc.Steps = ParseSteps(native.stringField("Microsoft.VSTS.TCM.Steps"))
	tc.CreatedAt = canonical.Audit{At: parseTime(native.stringField("System.CreatedDate"))}
	tc.UpdatedAt = canonical.Audit{At: parseTime(native.stringField("System.ChangedDate"))}

	for k, v := range native.Fields {
		if isKnownField(k) {
			continue
		}
		canonicalKey := m.canonicalFieldKey(k)
		tc.CustomFieldsBag()[canonicalKey] = m.coerceCustomField(canonicalKey, v)
	}
	return tc
}

// FromTestCase translates a canonical TestCase back into an Azure
// DevOps work item field set.
func (m Mapper) FromTestCase(tc canonical.TestCase) NativeWorkItem {
	fields := map[string]interface{}{
		"System.Title":                        tc.Title,
		"Microsoft.VSTS.TCM.Precondition":      tc.Precondition,
		"System.State":                         statusToADO[canonical.NormalizeStatus(tc.Status)],
		"Microsoft.VSTS.Common.Priority":       priorityToADO[canonical.NormalizePriority(tc.Priority)],
		"Microsoft.VSTS.TCM.Steps":             SerializeSteps(tc.Steps),
	}
	for k, v := range tc.CustomFields {
		fields[m.nativeFieldKey(k)] = v
	}
	return NativeWorkItem{Fields: fields}
}

func isKnownField(key string) bool {
	switch key {
	case "System.Title", "Microsoft.VSTS.TCM.Precondition", "System.State",
		"Microsoft.VSTS.Common.Priority", "Microsoft.VSTS.TCM.Steps",
		"System.CreatedDate", "System.ChangedDate":
		return true
	default:
		return false
	}
}

// ParseSteps parses Azure DevOps' escaped HTML step blob:
//
//	<steps><step><parameterizedString>action</parameterizedString><parameterizedString>expected</parameterizedString></step></steps>
//
// Malformed or empty HTML yields an empty step list rather than an
// error (Mapper Rule 1 — Total; Mapper Rule 5 — HTML step parsing).
func ParseSteps(blob string) []canonical.TestStep {
	if strings.TrimSpace(blob) == "" {
		return nil
	}
	// html.Parse accepts unclosed or mismatched tags, so the blob is first
	// checked for well-formedness with an XML decoder.
	dec := xml.NewDecoder(strings.NewReader(blob))
	dec.Entity = xml.HTMLEntity
	for {
		if _, err := dec.Token(); err == io.EOF {
			break
		} else if err != nil {
			return nil
		}
	}
	doc, err := html.Parse(strings.NewReader(blob))
	if err != nil {
		return nil
	}

	var steps []canonical.TestStep
	var stepNodes []*html.Node
	collectByTag(doc, "step", &stepNodes)

	for i, stepNode := range stepNodes {
		var strNodes []*html.Node
		collectByTag(stepNode, "parameterizedstring", &strNodes)
		action, expected := "", ""
		if len(strNodes) > 0 {
			action = textContent(strNodes[0])
		}
		if len(strNodes) > 1 {
			expected = textContent(strNodes[1])
		}
		steps = append(steps, canonical.TestStep{
			Sequence:       i + 1,
			Action:         action,
			ExpectedResult: expected,
		})
	}
	return steps
}

// SerializeSteps renders canonical steps back into Azure DevOps' HTML
// step blob shape.
func SerializeSteps(steps []canonical.TestStep) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<steps id="0" last="%d">`, len(steps)))
	for i, s := range steps {
		b.WriteString(fmt.Sprintf(`<step id="%d" type="ActionStep">`, i+1))
		b.WriteString("<parameterizedString isformatted=\"true\">")
		b.WriteString(html.EscapeString(s.Action))
		b.WriteString("</parameterizedString>")
		b.WriteString("<parameterizedString isformatted=\"true\">")
		b.WriteString(html.EscapeString(s.ExpectedResult))
		b.WriteString("</parameterizedString>")
		b.WriteString("</step>")
	}
	b.WriteString("</steps>")
	return b.String()
}

func collectByTag(n *html.Node, tag string, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.Data == tag {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectByTag(c, tag, out)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// stripHTML discards tags and returns text content only, used for
// plain-text fields (precondition, description) that Azure DevOps
// still stores as HTML.
func stripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(textContent(doc))
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
	if s, ok := statusFromADO[native]; ok {
		return s
	}
	return canonical.DefaultStatus
}

func lookupPriority(native int) canonical.Priority {
	if p, ok := priorityFromADO[native]; ok {
		return p
	}
	return canonical.DefaultPriority
}

func lookupExecutionStatus(native string) canonical.ExecutionStatus {
	if s, ok := executionStatusFromADO[native]; ok {
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
