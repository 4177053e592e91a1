package dishdash

import (
	"errors"

	"github.com/eshaffer321/dishdash-go/internal/token"
	"github.com/eshaffer321/dishdash-go/internal/types"
)

var (
	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = types.ErrNotAuthenticated

	// ErrForbidden is returned when the user lacks permission
	ErrForbidden = types.ErrForbidden

	// ErrSessionExpired is returned when the session could not be renewed
	ErrSessionExpired = types.ErrSessionExpired

	// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token
	ErrNoRefreshToken = types.ErrNoRefreshToken

	// ErrMalformedToken is returned when a token cannot be decoded
	ErrMalformedToken = token.ErrMalformedToken

	ErrNetwork     = types.ErrNetwork
	ErrBadRequest  = types.ErrBadRequest
	ErrConflict    = types.ErrConflict
	ErrValidation  = types.ErrValidation
	ErrRateLimited = types.ErrRateLimited
	ErrTimeout     = types.ErrTimeout
	ErrNotFound    = types.ErrNotFound
	ErrServerError = types.ErrServerError

	// ErrTrackingTimeout is returned when an order does not settle in time
	ErrTrackingTimeout = errors.New("order tracking timeout")

	// ErrTrackingCancelled is returned when tracking is stopped by the caller
	ErrTrackingCancelled = errors.New("order tracking cancelled")
)

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrMalformedToken)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *EnhancedError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return false
}

// FieldErrors returns the per-field validation messages carried by err, if any
func FieldErrors(err error) []FieldMessage {
	var apiErr *EnhancedError
	if errors.As(err, &apiErr) {
		return apiErr.FieldMessages()
	}
	return nil
}
