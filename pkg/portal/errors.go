package portal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common client errors.
// Components wrap these with operation context using %w.
var (
	// ErrTransport is returned when the request never produced an HTTP response
	ErrTransport = errors.New("portal: transport failure")

	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("portal: unexpected status")

	// ErrUnexpectedContent is returned when a response is not the expected JSON shape
	ErrUnexpectedContent = errors.New("portal: unexpected content")

	// ErrValidation is returned when local input validation blocks a submission
	ErrValidation = errors.New("portal: validation failed")

	// ErrPasswordMismatch is returned when the two password fields differ
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)

	// ErrNotAuthenticated is returned when no usable access token is stored
	ErrNotAuthenticated = errors.New("portal: not authenticated")

	// ErrTokenNotFound is returned by session stores for a missing key
	ErrTokenNotFound = errors.New("portal: token not found")

	// ErrInvalidCollection is returned for a malformed collection identifier
	ErrInvalidCollection = errors.New("portal: invalid collection")

	// ErrTimeout is returned when a request exceeds its deadline
	ErrTimeout = errors.New("portal: request timeout")

	// ErrCircuitOpen is returned when the circuit breaker rejects a request
	ErrCircuitOpen = errors.New("portal: circuit breaker open")
)

// StatusError describes a non-2xx API response.
type StatusError struct {
	Method     string
	Route      string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal: %s %s: status %d", e.Method, e.Route, e.StatusCode)
}

// Is makes a StatusError match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// ValidationError carries per-field messages from local form validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+e.Fields[k])
	}
	return "portal: validation failed: " + strings.Join(msgs, "; ")
}

// Messages returns the field messages ordered by field name.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return msgs
}

// Is makes a ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsValidation reports whether err was produced by local validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport reports whether err is a network level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// IsCircuitOpen reports whether the circuit breaker rejected the request.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsNotAuthenticated reports whether err means the session has no usable token.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenNotFound)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ClassifyError returns a low-cardinality label for metrics.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnexpectedContent):
		return "content"
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrTokenNotFound):
		return "unauthenticated"
	}

	switch code := StatusCode(err); {
	case code == 401 || code == 403:
		return "unauthorized"
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unmarshal"), strings.Contains(msg, "decode"):
		return "serialization"
	default:
		return "other"
	}
}
