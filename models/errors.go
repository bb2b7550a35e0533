package models

import "fmt"

// NetworkError wraps a transport failure or request deadline expiry. Historical
// lookups retry it with backoff; the today check fails open instead.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError wraps an unexpected feed shape, such as an
// unparseable timestamp. Treated like NetworkError for retry accounting.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IdentityResolutionError means the handle could not be resolved. Fatal, never
// retried.
type IdentityResolutionError struct {
	Handle string
	Err    error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("could not resolve handle %q: %v", e.Handle, e.Err)
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}
