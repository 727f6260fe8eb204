package interfaces

import (
	"context"

	domaintypes "courier/internal/domain/types"
)

// SignalTransport is the typed RPC surface of the message server. Non-2xx
// responses surface as *types.ProtocolError; transport failures (DNS, reset
// connections) surface unchanged and callers may treat them as retriable.
type SignalTransport interface {
	// GetKeysForAddr fetches pre-key bundles for every device of addr.
	GetKeysForAddr(ctx context.Context, addr domaintypes.Address) (domaintypes.PreKeyResponse, error)

	// GetKeysForDevice fetches the bundle for one device of addr.
	GetKeysForDevice(
		ctx context.Context,
		addr domaintypes.Address,
		device domaintypes.DeviceID,
	) (domaintypes.PreKeyResponse, error)

	// SendMessages transmits the ciphertext set for one recipient in a
	// single request keyed by timestamp.
	SendMessages(
		ctx context.Context,
		addr domaintypes.Address,
		msgs []domaintypes.EncryptedDeviceMessage,
		timestamp uint64,
	) error

	// RefreshCredential exchanges a refresh token for a fresh credential.
	RefreshCredential(ctx context.Context, refreshToken string) (domaintypes.Credential, error)
}
