package interfaces

import domaintypes "courier/internal/domain/types"

// SessionStore is the narrow persistence surface the dispatch core and the
// session machine consume. The device-id list for an address is derived from
// the session records stored under "addr.deviceId" keys. Implementations must
// serialise concurrent mutations of a given record internally.
type SessionStore interface {
	// GetDeviceIDs lists the device ids with a stored session record for
	// addr, ascending.
	GetDeviceIDs(addr domaintypes.Address) ([]domaintypes.DeviceID, error)

	// RemoveSession deletes the record keyed by the "addr.deviceId" form.
	// A missing record is not an error.
	RemoveSession(encoded string) error

	LoadSessionRecord(encoded string) (domaintypes.SessionRecord, bool, error)
	SaveSessionRecord(encoded string, rec domaintypes.SessionRecord) error

	// Peer identity keys, one per address.
	LoadPeerIdentity(addr domaintypes.Address) (domaintypes.X25519Public, bool, error)
	SavePeerIdentity(addr domaintypes.Address, key domaintypes.X25519Public) error
}

// IdentityStore persists our own long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// CredentialStore persists the server credential between refreshes.
type CredentialStore interface {
	SaveCredential(cred domaintypes.Credential) error
	LoadCredential() (domaintypes.Credential, bool, error)
}
