package interfaces

import (
	"context"

	domaintypes "courier/internal/domain/types"
)

// SessionCipher encrypts for one (address, device) pair over its stored
// session record.
type SessionCipher interface {
	// HasOpenSession reports whether an unclosed session exists.
	HasOpenSession(ctx context.Context) (bool, error)

	// Encrypt advances the sending chain and seals padded.
	Encrypt(ctx context.Context, padded []byte) (domaintypes.CiphertextMessage, error)

	// CloseOpenSession archives the active record. Closing a device without
	// a record is not an error.
	CloseOpenSession(ctx context.Context) error
}

// CipherFactory hands out session ciphers. Ciphers are cheap; callers may
// request one per device per operation.
type CipherFactory interface {
	CipherFor(addr domaintypes.Address, device domaintypes.DeviceID) SessionCipher
}

// SessionBuilder bootstraps a session from a fetched pre-key bundle. An
// identity mismatch against the stored key is reported with an error that
// carries the newly presented key (see session.UntrustedIdentityError); the
// record is not touched until the new key has been accepted.
type SessionBuilder interface {
	ProcessPreKey(ctx context.Context, addr domaintypes.Address, bundle domaintypes.PreKeyBundle) error
}
