package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoerceBooleanQuirk(t *testing.T) {
	require.Equal(t, true, Coerce(FieldTypeBoolean, "true"))
	require.Equal(t, true, Coerce(FieldTypeBoolean, "false"))
	require.Equal(t, false, Coerce(FieldTypeBoolean, ""))
	require.Equal(t, false, Coerce(FieldTypeBoolean, false))
	require.Equal(t, true, Coerce(FieldTypeBoolean, 1))
	require.Equal(t, false, Coerce(FieldTypeBoolean, 0))
}

func TestCoerceIntegerPreservesZeroAndNegative(t *testing.T) {
	require.Equal(t, int64(0), Coerce(FieldTypeInteger, 0))
	require.Equal(t, int64(-7), Coerce(FieldTypeInteger, "-7"))
	require.Equal(t, int64(42), Coerce(FieldTypeInteger, 42.9))
}

func TestCoerceDateISO(t *testing.T) {
	got := Coerce(FieldTypeDateTime, "2025-04-15T14:30:45Z").(time.Time)
	require.Equal(t, "2025-04-15T14:30:45.000Z", got.Format("2006-01-02T15:04:05.000Z"))
}

func TestCoerceArrayPipeSeparated(t *testing.T) {
	got := Coerce(FieldTypeArray, "a|b|c").([]interface{})
	require.Equal(t, []interface{}{"a", "b", "c"}, got)
}

func TestNormalizeStatusDefaultsUnknown(t *testing.T) {
	require.Equal(t, StatusDraft, NormalizeStatus("not-a-real-status"))
	require.Equal(t, StatusApproved, NormalizeStatus(StatusApproved))
}

func TestRenumberRestoresSequence(t *testing.T) {
	steps := []TestStep{{Sequence: 5}, {Sequence: 9}}
	steps = Renumber(steps)
	require.Equal(t, 1, steps[0].Sequence)
	require.Equal(t, 2, steps[1].Sequence)
}
