package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification. Adapters and the dispatcher wrap these
// with %w so callers can branch with errors.Is.
var (
	// ErrInvalidRequest marks a request that failed canonical validation.
	// Such a request is never sent to a provider.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownBackend marks a backend id with no registered adapter.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrMissingCredential marks a required API key or base URL that was
	// not supplied. Raised before any outbound call.
	ErrMissingCredential = errors.New("missing credential")

	// ErrProvider marks a request the provider rejected or an explicit
	// failure state it reported. The wrapping BackendError carries the
	// provider HTTP status and body.
	ErrProvider = errors.New("provider error")

	// ErrTimeout marks an exhausted poll budget or request deadline.
	ErrTimeout = errors.New("timeout")

	// ErrParse marks a provider response no extraction strategy could
	// interpret.
	ErrParse = errors.New("parse error")

	// ErrNetwork marks a transport-level failure.
	ErrNetwork = errors.New("network error")

	// ErrDecode marks a malformed provider payload.
	ErrDecode = errors.New("decode error")
)

// BackendError is an error surfaced by a backend adapter with full provider
// context: the HTTP status and raw body for provider-rejected requests, and a
// sentinel in Err for classification.
type BackendError struct {
	Backend string
	Status  int
	Body    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Backend, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

// Unwrap returns the sentinel for error chaining.
func (e *BackendError) Unwrap() error {
	return e.Err
}
