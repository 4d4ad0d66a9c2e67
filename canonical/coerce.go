package canonical

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coerce converts a raw vendor-shaped value into its canonical
// representation for the given FieldType, per the coercion policy in
// spec.md §4.1. Coerce never errors for STRING/TEXT/NUMBER/INTEGER/
// BOOLEAN/DATE/ARRAY/USER — it always returns *something* so mapper
// totality holds; CUSTOM values are returned unchanged for the caller to
// validate separately (see providers/contract.ValidateCustom).
func Coerce(t FieldType, raw interface{}) interface{} {
	switch t {
	case FieldTypeString, FieldTypeText:
		return coerceString(raw)
	case FieldTypeNumber:
		return coerceNumber(raw)
	case FieldTypeInteger:
		return coerceInteger(raw)
	case FieldTypeBoolean:
		return coerceBoolean(raw)
	case FieldTypeDate, FieldTypeDateTime:
		return coerceDate(raw)
	case FieldTypeArray:
		return coerceArray(raw)
	case FieldTypeUser:
		return coerceUser(raw)
	case FieldTypeMultiUser:
		return coerceMultiUser(raw)
	case FieldTypeURL:
		return coerceString(raw)
	case FieldTypeEnum:
		return raw
	default: // CUSTOM and unknown types pass through unchanged
		return raw
	}
}

func coerceString(raw interface{}) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

func coerceNumber(raw interface{}) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// coerceInteger floors the parsed numeric value, preserving 0 and
// negatives exactly as spec.md §4.1 requires.
func coerceInteger(raw interface{}) int64 {
	f := coerceNumber(raw)
	return int64(math.Floor(f))
}

// coerceBoolean implements the documented quirk: any non-empty string
// (including the literal "false") coerces to true; only the empty
// string, a real `false`, or numeric 0 coerce to false. This resolves
// the Open Question in spec.md §9 in favor of the behavior the spec
// text itself states ("non-empty string coerces to true").
func coerceBoolean(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

// coerceDate accepts an ISO-8601 string or an epoch-milliseconds number.
// Unparseable input yields the zero time rather than an error/panic.
func coerceDate(raw interface{}) time.Time {
	switch v := raw.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case string:
		for _, layout := range []string{
			time.RFC3339Nano, time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
		return time.Time{}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Time{}
	}
}

// coerceArray accepts a native array or a pipe-separated string.
func coerceArray(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return v
	case string:
		if v == "" {
			return []interface{}{}
		}
		parts := strings.Split(v, "|")
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	default:
		return []interface{}{v}
	}
}

// coerceUser prefers a display name, falling back to an id.
func coerceUser(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"displayName", "name", "fullName"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		for _, key := range []string{"id", "accountId", "userId"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprintf("%v", raw)
	}
}

func coerceMultiUser(raw interface{}) []string {
	arr := coerceArray(raw)
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, coerceUser(item))
	}
	return out
}
