package qtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
)

func TestToTestCaseAppliesDefaultsOnMissingFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("101", NativeTestCase{})

	require.Equal(t, canonical.StatusDraft, tc.Status)
	require.Equal(t, canonical.PriorityMedium, tc.Priority)
	require.Empty(t, tc.Steps)
}

func TestToTestCaseUnknownStatusIDFallsBackToDefault(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("102", NativeTestCase{StatusID: 999})
	require.Equal(t, canonical.StatusDraft, tc.Status)
}

func TestStatusEnumRoundTrip(t *testing.T) {
	for native, want := range statusFromQTest {
		m := Mapper{}
		tc := m.ToTestCase("103", NativeTestCase{StatusID: native})
		require.Equal(t, want, tc.Status)

		back := m.FromTestCase(tc)
		require.Equal(t, native, back.StatusID)
	}
}

func TestStepOrderPreservedOnRoundTrip(t *testing.T) {
	m := Mapper{}
	native := []NativeStep{
		{Description: "step one", Expected: "result one"},
		{Description: "step two", Expected: "result two"},
	}
	steps := m.ToTestSteps(native)
	require.Len(t, steps, 2)
	for i, s := range steps {
		require.Equal(t, i+1, s.Sequence)
	}

	back := m.FromTestSteps(steps)
	require.Equal(t, native, back)
}

func TestPriorityIDAcceptsNumericShape(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("108", NativeTestCase{PriorityID: NumericPriorityID(1)})
	require.Equal(t, canonical.PriorityCritical, tc.Priority)
}

func TestPriorityIDAcceptsTextualShape(t *testing.T) {
	cases := map[string]canonical.Priority{
		"critical": canonical.PriorityCritical,
		"high":     canonical.PriorityHigh,
		"medium":   canonical.PriorityMedium,
		"low":      canonical.PriorityLow,
	}
	for name, want := range cases {
		m := Mapper{}
		tc := m.ToTestCase("109", NativeTestCase{PriorityID: PriorityID{Name: name}})
		require.Equal(t, want, tc.Priority, "textual priority %q", name)
	}
}

func TestPriorityIDUnmarshalsBothJSONShapes(t *testing.T) {
	var numeric PriorityID
	require.NoError(t, json.Unmarshal([]byte("2"), &numeric))
	require.Equal(t, 2, numeric.Num)

	var textual PriorityID
	require.NoError(t, json.Unmarshal([]byte(`"high"`), &textual))
	require.Equal(t, "high", textual.Name)
}

func TestCustomFieldCoercionAppliesDeclaredFieldTypes(t *testing.T) {
	m := Mapper{FieldTypes: map[string]canonical.FieldType{
		"intField": canonical.FieldTypeInteger,
		"boolTrue": canonical.FieldTypeBoolean,
		"dueDate":  canonical.FieldTypeDate,
	}}
	tc := m.ToTestCase("110", NativeTestCase{
		Properties: map[string]interface{}{
			"intField": "42",
			"boolTrue": "true",
			"dueDate":  "2025-06-01T00:00:00Z",
		},
	})
	require.Equal(t, int64(42), tc.CustomFields["intField"])
	require.Equal(t, true, tc.CustomFields["boolTrue"])
	require.Equal(t, "2025-06-01T00:00:00Z", tc.CustomFields["dueDate"].(time.Time).Format(time.RFC3339))
}

func TestUnrecognizedPropertyPreservedUnderCustomFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("104", NativeTestCase{
		Properties: map[string]interface{}{"risk_level": "high"},
	})
	require.Equal(t, "high", tc.CustomFields["risk_level"])
}

func TestFieldMappingOverridesVendorKey(t *testing.T) {
	m := Mapper{FieldMappings: map[string]string{"riskLevel": "CF_risk"}}
	tc := m.ToTestCase("105", NativeTestCase{
		Properties: map[string]interface{}{"CF_risk": "critical"},
	})
	require.Equal(t, "critical", tc.CustomFields["riskLevel"])

	back := m.FromTestCase(tc)
	require.Equal(t, "critical", back.Properties["CF_risk"])
}

func TestExecutionStatusEnumRoundTrip(t *testing.T) {
	for native, want := range executionStatusFromQTest {
		m := Mapper{}
		exec := m.ToExecution("EX-1", NativeRun{StatusID: native})
		require.Equal(t, want, exec.Status)

		back := m.FromExecution(exec)
		require.Equal(t, native, back.StatusID)
	}
}

func TestMalformedTimestampYieldsZeroTimeNotError(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("106", NativeTestCase{CreatedDate: "not-a-date"})
	require.True(t, tc.CreatedAt.At.IsZero())
}

func TestParentIDZeroOmitsFolderID(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("107", NativeTestCase{ParentID: 0})
	require.Empty(t, tc.FolderID)
}
