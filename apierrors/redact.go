package apierrors

import "strings"

// SensitiveKeys is the fixed set of parameter keys the enrichment helper
// redacts, per spec.md §7. Matching is case-insensitive.
var SensitiveKeys = []string{"password", "apiToken", "clientSecret", "Authorization"}

const redactedPlaceholder = "***REDACTED***"

func isSensitiveKey(key string) bool {
	for _, k := range SensitiveKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// Enrich attaches an operation name and a parameter map to an APIError,
// redacting any sensitive key before it is ever stored — so P8 holds for
// every error this helper touches, not just ones logged directly.
func Enrich(err *APIError, operation string, params map[string]interface{}) *APIError {
	err.Operation = operation
	if params == nil {
		return err
	}
	redacted := make(map[string]interface{}, len(params))
	for k, v := range params {
		if isSensitiveKey(k) {
			redacted[k] = redactedPlaceholder
			continue
		}
		redacted[k] = v
	}
	err.Params = redacted
	return err
}

// RedactString replaces every occurrence of each given sensitive value
// (e.g. a token or password) in a free-form string with the placeholder.
// Empty values are skipped; keys are not inspected.
func RedactString(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if v == "" {
			continue
		}
		s = strings.ReplaceAll(s, v, redactedPlaceholder)
	}
	return s
}
