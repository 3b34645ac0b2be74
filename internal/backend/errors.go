package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a structured failure from the backend sync protocol. StatusCode is
// zero for transport-level failures that never produced a response.
type Error struct {
	// Op is the protocol step that failed: "setup", "status" or "push".
	Op string

	// StatusCode is the HTTP status of the failed response, or 0.
	StatusCode int

	// Body is a truncated copy of the response body, when available.
	Body string

	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("backend %s error %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("backend %s error %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("backend %s request failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the backend rejected the agent's credentials.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// retryable reports whether the failure is transient from the client's point
// of view: transport errors and server-side 5xx responses.
func (e *Error) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// IsUnauthorized reports whether err carries a backend auth rejection.
func IsUnauthorized(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Unauthorized()
}
