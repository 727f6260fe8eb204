package types

// Ciphertext message types on the wire.
const (
	// WhisperType marks a ciphertext for an established session.
	WhisperType uint32 = 1
	// PreKeyType marks a ciphertext that still carries session bootstrap
	// material; sent until the session is confirmed by the peer.
	PreKeyType uint32 = 3
)

// CiphertextMessage is a session cipher's output before wire framing.
type CiphertextMessage struct {
	Type           uint32
	Body           []byte
	RegistrationID uint32
}

// EncryptedDeviceMessage is the wire form of one device's ciphertext.
// One is produced per active device and the set is transmitted together
// for a single recipient. Content marshals to standard base64.
type EncryptedDeviceMessage struct {
	Type                      uint32 `json:"type"`
	DestinationDeviceID       uint32 `json:"destinationDeviceId"`
	DestinationRegistrationID uint32 `json:"destinationRegistrationId"`
	Content                   []byte `json:"content"`
}

// MessageBundle is the body of a send request. Timestamp is the caller's
// send time; the server uses it as the deduplication key.
type MessageBundle struct {
	Messages  []EncryptedDeviceMessage `json:"messages"`
	Timestamp uint64                   `json:"timestamp"`
}

// MismatchedDevices is the body of a 409 response: the server's diff of the
// device set we addressed against its authoritative view.
type MismatchedDevices struct {
	ExtraDevices   []DeviceID `json:"extraDevices"`
	MissingDevices []DeviceID `json:"missingDevices"`
}

// StaleDevices is the body of a 410 response: devices whose sessions the
// server considers out of sync.
type StaleDevices struct {
	StaleDevices []DeviceID `json:"staleDevices"`
}
