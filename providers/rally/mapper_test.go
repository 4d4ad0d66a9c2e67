package rally

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
)

func TestToTestCaseAppliesDefaultsOnMissingFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("TC1", NativeTestCase{})

	require.Equal(t, canonical.StatusDraft, tc.Status)
	require.Equal(t, canonical.PriorityMedium, tc.Priority)
	require.Empty(t, tc.Steps)
}

func TestStatusSynthesizedFromHasResults(t *testing.T) {
	m := Mapper{}
	withResults := m.ToTestCase("TC2", NativeTestCase{HasResults: true})
	require.Equal(t, canonical.StatusApproved, withResults.Status)

	withoutResults := m.ToTestCase("TC3", NativeTestCase{HasResults: false})
	require.Equal(t, canonical.StatusDraft, withoutResults.Status)
}

func TestPriorityEnumRoundTrip(t *testing.T) {
	for native, want := range priorityFromRally {
		m := Mapper{}
		tc := m.ToTestCase("TC4", NativeTestCase{Priority: native})
		require.Equal(t, want, tc.Priority)

		back := m.FromTestCase(tc)
		require.Equal(t, native, back.Priority)
	}
}

func TestStepOrderPreservedOnRoundTrip(t *testing.T) {
	m := Mapper{}
	native := []NativeStep{
		{Input: "step one", ExpectedResult: "result one"},
		{Input: "step two", ExpectedResult: "result two"},
	}
	steps := m.ToTestSteps(native)
	require.Len(t, steps, 2)
	for i, s := range steps {
		require.Equal(t, i+1, s.Sequence)
	}
	back := m.FromTestSteps(steps)
	require.Equal(t, native, back)
}

func TestExecutionStatusEnumRoundTrip(t *testing.T) {
	for native, want := range executionStatusFromRally {
		m := Mapper{}
		exec := m.ToExecution("R1", NativeResult{Verdict: native})
		require.Equal(t, want, exec.Status)

		back := m.FromExecution(exec)
		require.Equal(t, native, back.Verdict)
	}
}

func TestMalformedTimestampYieldsZeroTimeNotError(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("TC5", NativeTestCase{CreationDate: "not-a-date"})
	require.True(t, tc.CreatedAt.At.IsZero())
}

func TestUnrecognizedCustomFieldPreservedUnderCustomFields(t *testing.T) {
	m := Mapper{}
	tc := m.ToTestCase("TC6", NativeTestCase{
		Custom: map[string]interface{}{"risk_level": "high"},
	})
	require.Equal(t, "high", tc.CustomFields["risk_level"])
}

func TestCustomFieldCoercionAppliesDeclaredFieldTypes(t *testing.T) {
	m := Mapper{FieldTypes: map[string]canonical.FieldType{"storyPoints": canonical.FieldTypeInteger}}
	tc := m.ToTestCase("TC7", NativeTestCase{
		Custom: map[string]interface{}{"storyPoints": "5"},
	})
	require.Equal(t, int64(5), tc.CustomFields["storyPoints"])
}
