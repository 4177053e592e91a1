package types

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the user lacks permission
	ErrForbidden = errors.New("forbidden")

	// ErrSessionExpired is returned when the session could not be renewed
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNetwork is returned when the server could not be reached
	ErrNetwork = errors.New("network unreachable")

	// ErrBadRequest is returned for malformed requests
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned when a resource conflicts with an existing one
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when the server rejects input field by field
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")
)

// EnhancedError is the normalized failure delivered to callers of the request pipeline.
// StatusCode 0 means no response was received.
type EnhancedError struct {
	StatusCode  int                 `json:"statusCode"`
	Message     string              `json:"message"`
	Timestamp   time.Time           `json:"timestamp"`
	URL         string              `json:"url"`
	Method      string              `json:"method"`
	RequestID   string              `json:"requestId,omitempty"`
	RawBody     []byte              `json:"-"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	Err         error               `json:"-"`
}

func (e *EnhancedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause
func (e *EnhancedError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the status code class
func (e *EnhancedError) Is(target error) bool {
	if t, ok := target.(*EnhancedError); ok {
		return e.StatusCode == t.StatusCode
	}
	return StatusSentinel(e.StatusCode) == target
}

// FieldMessages flattens field errors into field/message pairs ordered by field name
func (e *EnhancedError) FieldMessages() []FieldMessage {
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []FieldMessage
	for _, field := range fields {
		for _, msg := range e.FieldErrors[field] {
			out = append(out, FieldMessage{Field: field, Message: msg})
		}
	}
	return out
}

// FieldMessage is a single server-side validation complaint
type FieldMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StatusSentinel maps an HTTP status code to its sentinel error, or nil
func StatusSentinel(status int) error {
	switch {
	case status == 0:
		return ErrNetwork
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServerError
	default:
		return nil
	}
}
