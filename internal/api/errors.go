package api

import (
	"errors"
	"fmt"
	"strings"
)

// AuthError indicates that the session has expired or the token was
// rejected. It is returned on HTTP 401/419 so callers can surface a
// re-authentication affordance instead of retrying silently.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session expired (%d): %s", e.Status, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ValidationError carries server-side per-field validation messages from
// an HTTP 422 response. The UI passes these through inline.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// FieldError returns the first validation message for a field, or "".
func (e *ValidationError) FieldError(field string) string {
	if msgs, ok := e.Fields[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// IsValidationError extracts a ValidationError from err's chain.
func IsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
