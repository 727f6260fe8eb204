package types

// SignedPreKey is a device's medium-term key, signed by its signing key.
type SignedPreKey struct {
	ID        uint32       `json:"keyId"`
	Public    X25519Public `json:"publicKey"`
	Signature []byte       `json:"signature"`
}

// OneTimePreKey is a single-use key the server hands out at most once.
type OneTimePreKey struct {
	ID     uint32       `json:"keyId"`
	Public X25519Public `json:"publicKey"`
}

// PreKeyBundle is the per-device key material consumed by the session
// builder and then discarded. IdentityKey and SigningKey are per-address;
// the transport copies them into each device entry of a response.
type PreKeyBundle struct {
	DeviceID       DeviceID       `json:"deviceId"`
	RegistrationID uint32         `json:"registrationId"`
	IdentityKey    X25519Public   `json:"identityKey"`
	SigningKey     Ed25519Public  `json:"signingKey"`
	SignedPreKey   SignedPreKey   `json:"signedPreKey"`
	PreKey         *OneTimePreKey `json:"preKey,omitempty"`
}

// PreKeyResponse is what the server returns for a key fetch: the address's
// identity material plus one bundle per requested device.
type PreKeyResponse struct {
	IdentityKey X25519Public   `json:"identityKey"`
	SigningKey  Ed25519Public  `json:"signingKey"`
	Devices     []PreKeyBundle `json:"devices"`
}
