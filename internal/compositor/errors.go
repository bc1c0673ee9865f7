// internal/compositor/errors.go
package compositor

import "fmt"

// AuthError means the upstream rejected the tenant's credentials.
type AuthError struct {
	MicrositeID string
	Status      int
	Body        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("compositor auth failed for %s: status %d: %s", e.MicrositeID, e.Status, e.Body)
}

// NotFoundError means the upstream answered but had no matching booking.
type NotFoundError struct {
	MicrositeID string
	Reference   string
	Status      int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("booking %s not found in %s (status %d)", e.Reference, e.MicrositeID, e.Status)
}

// TransportError wraps network-level failures (timeout, DNS, refused).
type TransportError struct {
	MicrositeID string
	Op          string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("compositor %s for %s: %v", e.Op, e.MicrositeID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
