package outgoing

import (
	"fmt"

	"courier/internal/domain"
)

// OutgoingMessageError wraps a failure during dispatch: every error-event
// cause except a protocol-level 404. The metadata is attached at
// construction and never mutated afterwards.
type OutgoingMessageError struct {
	Addr      domain.Address
	Reason    string
	Timestamp uint64
	Cause     error
}

// Error implements the error interface.
func (e *OutgoingMessageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Reason, e.Addr, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *OutgoingMessageError) Unwrap() error { return e.Cause }

// SendMessageError is a non-retriable transport failure: the server answered
// with a protocol error that is not a 404/409/410.
type SendMessageError struct {
	Addr      domain.Address
	Timestamp uint64
	Cause     error
}

// Error implements the error interface.
func (e *SendMessageError) Error() string {
	return fmt.Sprintf("send to %q failed: %v", e.Addr, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SendMessageError) Unwrap() error { return e.Cause }

// UnregisteredUserError reports that the server does not know the address.
type UnregisteredUserError struct {
	Addr  domain.Address
	Cause error
}

// Error implements the error interface.
func (e *UnregisteredUserError) Error() string {
	return fmt.Sprintf("address %q is not registered", e.Addr)
}

// Unwrap returns the underlying cause.
func (e *UnregisteredUserError) Unwrap() error { return e.Cause }

// IdentityKeyError reports that addr presented an identity key differing
// from the stored one. A keychange handler may set Accepted to approve the
// rotation, after which the dispatch retries the affected devices once.
type IdentityKeyError struct {
	Addr        domain.Address
	Timestamp   uint64
	IdentityKey domain.X25519Public

	// Accepted is the only mutable field; it is read after the keychange
	// handlers have run.
	Accepted bool
}

// Error implements the error interface.
func (e *IdentityKeyError) Error() string {
	return fmt.Sprintf("identity key for %q changed", e.Addr)
}
