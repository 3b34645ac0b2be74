package sources

import (
	"errors"
	"fmt"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

// NotConfiguredError means the adapter is missing credentials or settings and
// never attempted to talk to the platform.
type NotConfiguredError struct {
	Platform platform.Platform
	Reason   string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("platform '%s' is not configured: %s", e.Platform, e.Reason)
}

// AuthError means the platform rejected the stored credentials; the user must
// re-authenticate.
type AuthError struct {
	Platform platform.Platform
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("platform '%s' rejected credentials: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ParseError means the platform's data was reachable but could not be
// decoded.
type ParseError struct {
	Platform platform.Platform
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse data from platform '%s': %v", e.Platform, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotConfigured reports whether err indicates missing configuration.
func IsNotConfigured(err error) bool {
	var target *NotConfiguredError
	return errors.As(err, &target)
}

// IsAuth reports whether err indicates a credential rejection.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}
