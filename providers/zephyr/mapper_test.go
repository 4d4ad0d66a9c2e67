package zephyr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
)

func TestToTestCaseAppliesDefaultsOnMissingFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("ZS-1", NativeTestCase{})

	require.Equal(t, canonical.StatusDraft, tc.Status)
	require.Equal(t, canonical.PriorityMedium, tc.Priority)
	require.Empty(t, tc.Steps)
}

func TestToTestCaseUnknownStatusFallsBackToDefault(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("ZS-2", NativeTestCase{Status: "Bogus Status"})
	require.Equal(t, canonical.StatusDraft, tc.Status)
}

func TestStatusEnumRoundTrip(t *testing.T) {
	for native, want := range statusFromZephyr {
		m := Mapper{}
		tc := m.ToTestCase("ZS-3", NativeTestCase{Status: native})
		require.Equal(t, want, tc.Status)

		back := m.FromTestCase(tc)
		require.Equal(t, native, back.Status)
	}
}

func TestStepOrderPreservedOnRoundTrip(t *testing.T) {
	m := Mapper{}
	native := []NativeStep{
		{Description: "step one", ExpectedResult: "result one"},
		{Description: "step two", ExpectedResult: "result two"},
		{Description: "step three", ExpectedResult: "result three"},
	}
	steps := m.ToTestSteps(native)
	require.Len(t, steps, 3)
	for i, s := range steps {
		require.Equal(t, i+1, s.Sequence)
	}

	back := m.FromTestSteps(steps)
	require.Equal(t, native, back)
}

func TestUnrecognizedCustomFieldPreservedUnderCustomFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("ZS-4", NativeTestCase{
		CustomFields: map[string]interface{}{"risk_level": "high"},
	})
	require.Equal(t, "high", tc.CustomFields["risk_level"])
}

func TestFieldMappingOverridesVendorKey(t *testing.T) {
	m := Mapper{FieldMappings: map[string]string{"riskLevel": "customfield_risk"}}
	tc := m.ToTestCase("ZS-5", NativeTestCase{
		CustomFields: map[string]interface{}{"customfield_risk": "critical"},
	})
	require.Equal(t, "critical", tc.CustomFields["riskLevel"])

	back := m.FromTestCase(tc)
	require.Equal(t, "critical", back.CustomFields["customfield_risk"])
}

func TestCustomFieldCoercionAppliesDeclaredFieldTypes(t *testing.T) {
	m := Mapper{FieldTypes: map[string]canonical.FieldType{
		"intField":  canonical.FieldTypeInteger,
		"boolTrue":  canonical.FieldTypeBoolean,
		"dueDate":   canonical.FieldTypeDate,
	}}
	tc := m.ToTestCase("ZS-7", NativeTestCase{
		CustomFields: map[string]interface{}{
			"intField": "42",
			"boolTrue": "true",
			"dueDate":  "2025-06-01T00:00:00Z",
		},
	})
	require.Equal(t, int64(42), tc.CustomFields["intField"])
	require.Equal(t, true, tc.CustomFields["boolTrue"])
	require.Equal(t, "2025-06-01T00:00:00Z", tc.CustomFields["dueDate"].(time.Time).Format(time.RFC3339))
}

func TestCustomFieldWithoutDeclaredTypePassesThroughUnchanged(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("ZS-8", NativeTestCase{
		CustomFields: map[string]interface{}{"undeclared": "raw-value"},
	})
	require.Equal(t, "raw-value", tc.CustomFields["undeclared"])
}

func TestExecutionStatusEnumRoundTrip(t *testing.T) {
	for native, want := range executionStatusFromZephyr {
		m := Mapper{}
		exec := m.ToExecution("EX-1", NativeExecution{Status: native})
		require.Equal(t, want, exec.Status)

		back := m.FromExecution(exec)
		require.Equal(t, native, back.Status)
	}
}

func TestMalformedTimestampYieldsZeroTimeNotError(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("ZS-6", NativeTestCase{CreatedOn: "not-a-date"})
	require.True(t, tc.CreatedAt.At.IsZero())
}
