// Package apierrors is the error taxonomy every resilience and provider
// component raises through, per spec.md §7. A single concrete type,
// APIError, carries category, provider, HTTP context, and a redacted
// parameter map — callers switch on Category rather than on string
// matching or Go error-type assertions for individual vendors.
package apierrors

import (
	"errors"
	"fmt"
)

// Category is part of every error (spec.md §7).
type Category string

const (
	Authentication Category = "AUTHENTICATION"
	Authorization  Category = "AUTHORIZATION"
	Network        Category = "NETWORK"
	Server         Category = "SERVER"
	RateLimit      Category = "RATE_LIMIT"
	Validation     Category = "VALIDATION"
	NotFound       Category = "NOT_FOUND"
	Conflict       Category = "CONFLICT"
	CircuitOpen    Category = "CIRCUIT_OPEN"
	Cancelled      Category = "CANCELLED"
	Unsupported    Category = "UNSUPPORTED"
	Unknown        Category = "UNKNOWN"
)

// retryable is the fixed per-category retry policy from spec.md §7's table.
// RATE_LIMIT and AUTHENTICATION are conditionally retryable (after
// Retry-After / refresh respectively) — callers consult RetryAfter and
// the HTTP client's one-shot reauthenticate-and-retry on a 401 rather
// than this map alone for those two.
var retryable = map[Category]bool{
	Authentication: true,
	Authorization:  false,
	Network:        true,
	Server:         true,
	RateLimit:      true,
	Validation:     false,
	NotFound:       false,
	Conflict:       false,
	CircuitOpen:    false,
	Cancelled:      false,
	Unsupported:    false,
	Unknown:        false,
}

// APIError is the concrete error type raised across the module.
type APIError struct {
	Provider    string
	Category    Category
	Message     string
	HTTPStatus  int
	RetryAfter  string // seconds or HTTP-date, verbatim from the Retry-After header
	FieldErrors map[string]string
	Operation   string
	Params      map[string]interface{} // redacted before storage, see Enrich
	Cause       error
}

func (e *APIError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s [%s] %s", e.Provider, e.Operation, e.Category, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Provider, e.Category, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Retryable reports whether the retry engine should attempt this error
// again, per the classifier rules in spec.md §4.4/§7.
func (e *APIError) Retryable() bool {
	if e.Cause != nil {
		var advertises interface{ IsRetryable() bool }
		if errors.As(e.Cause, &advertises) {
			return advertises.IsRetryable()
		}
	}
	return retryable[e.Category]
}

// New constructs an APIError for the given provider/category.
func New(provider string, category Category, message string) *APIError {
	return &APIError{Provider: provider, Category: category, Message: message}
}

// Wrap constructs an APIError carrying an underlying cause.
func Wrap(provider string, category Category, message string, cause error) *APIError {
	return &APIError{Provider: provider, Category: category, Message: message, Cause: cause}
}

// NewWithFields constructs a VALIDATION-shaped APIError carrying a
// per-field error map, e.g. from custom-field schema validation.
func NewWithFields(provider string, category Category, message string, fieldErrors map[string]string) *APIError {
	return &APIError{Provider: provider, Category: category, Message: message, FieldErrors: fieldErrors}
}

// As reports whether err is (or wraps) an *APIError, mirroring errors.As
// for callers that only need the typed error back.
func As(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CategoryOf returns the category of err if it is an APIError, else Unknown.
func CategoryOf(err error) Category {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return Unknown
}
