// Package whoop provides a typed HTTP client for the WHOOP developer API:
// OAuth2 authorization-code flow, token refresh, and paginated fetchers for
// workouts, recovery, sleep, cycles, profile, and body measurement.
//
// Every transport failure — network error, timeout, or non-2xx response —
// surfaces as a *APIError wrapping ErrServiceUnavailable. The client never
// retries; callers decide whether re-invocation is appropriate.
package whoop

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable is the uniform sentinel for any vendor API failure.
// Use errors.Is(err, whoop.ErrServiceUnavailable) to check.
var ErrServiceUnavailable = errors.New("whoop: service unavailable")

// APIError wraps ErrServiceUnavailable with the HTTP status code and
// response body (when a response was received at all) for debugging.
// StatusCode is 0 for pure transport failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("whoop: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("whoop: request failed: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError builds the uniform external-service failure.
func newAPIError(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Err:        ErrServiceUnavailable,
	}
}
