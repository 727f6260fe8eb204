package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"

	"courier/internal/domain"
	"courier/internal/util/memzero"
)

// ErrNoSession is returned when encrypting for a device without an open
// session record.
var ErrNoSession = errors.New("no open session for device")

// messageHeader travels with every ciphertext.
type messageHeader struct {
	RatchetKey          domain.X25519Public `json:"ratchetKey"`
	PreviousChainLength uint32              `json:"previousChainLength"`
	MessageIndex        uint32              `json:"messageIndex"`
}

// messageBody is the serialized form carried in EncryptedDeviceMessage
// content. PreKey is present until the session is confirmed.
type messageBody struct {
	Header     messageHeader         `json:"header"`
	PreKey     *domain.PendingPreKey `json:"preKey,omitempty"`
	Ciphertext []byte                `json:"ciphertext"`
}

// Cipher encrypts for one (address, device) pair. Instances are cheap and
// stateless; all state lives in the session record.
type Cipher struct {
	store  domain.SessionStore
	addr   domain.Address
	device domain.DeviceID
}

// Factory hands out ciphers over a shared session store.
type Factory struct {
	store domain.SessionStore
}

// NewFactory constructs a Factory over store.
func NewFactory(store domain.SessionStore) *Factory {
	return &Factory{store: store}
}

// CipherFor returns a cipher for one device of addr.
func (f *Factory) CipherFor(addr domain.Address, device domain.DeviceID) domain.SessionCipher {
	return &Cipher{store: f.store, addr: addr, device: device}
}

func (c *Cipher) encoded() string {
	return domain.EncodedDevice(c.addr, c.device)
}

// HasOpenSession reports whether an unclosed session record with a usable
// sending chain exists for the device.
func (c *Cipher) HasOpenSession(ctx context.Context) (bool, error) {
	rec, ok, err := c.store.LoadSessionRecord(c.encoded())
	if err != nil {
		return false, err
	}
	return ok && !rec.Closed && len(rec.SendChainKey) > 0, nil
}

// Encrypt derives the next message key, seals padded, advances the sending
// chain, and persists the record. The message type is PreKey until the
// session has been confirmed by the peer.
func (c *Cipher) Encrypt(ctx context.Context, padded []byte) (domain.CiphertextMessage, error) {
	rec, ok, err := c.store.LoadSessionRecord(c.encoded())
	if err != nil {
		return domain.CiphertextMessage{}, err
	}
	if !ok || rec.Closed || len(rec.SendChainKey) == 0 {
		return domain.CiphertextMessage{}, ErrNoSession
	}

	nextCK, mk := kdfChain(rec.SendChainKey)
	header := messageHeader{
		RatchetKey:          rec.RatchetPublic,
		PreviousChainLength: rec.PreviousChainLength,
		MessageIndex:        rec.SendMessageIndex,
	}
	ct, err := seal(mk, header, padded)
	memzero.Zero(mk)
	if err != nil {
		return domain.CiphertextMessage{}, err
	}

	body, err := json.Marshal(messageBody{
		Header:     header,
		PreKey:     rec.PendingPreKey,
		Ciphertext: ct,
	})
	if err != nil {
		return domain.CiphertextMessage{}, err
	}

	msgType := domain.WhisperType
	if rec.PendingPreKey != nil {
		msgType = domain.PreKeyType
	}

	memzero.Zero(rec.SendChainKey)
	rec.SendChainKey = nextCK
	rec.SendMessageIndex++
	if err := c.store.SaveSessionRecord(c.encoded(), rec); err != nil {
		return domain.CiphertextMessage{}, err
	}

	return domain.CiphertextMessage{
		Type:           msgType,
		Body:           body,
		RegistrationID: rec.RegistrationID,
	}, nil
}

// CloseOpenSession archives the active record so a later key fetch rebuilds
// the session from scratch. A missing record is not an error.
func (c *Cipher) CloseOpenSession(ctx context.Context) error {
	rec, ok, err := c.store.LoadSessionRecord(c.encoded())
	if err != nil || !ok {
		return err
	}
	memzero.Zero(rec.SendChainKey)
	memzero.Zero(rec.RootKey)
	rec.SendChainKey = nil
	rec.Closed = true
	return c.store.SaveSessionRecord(c.encoded(), rec)
}

// seal encrypts padded under mk, binding the header as associated data. The
// nonce is the message index; message keys are never reused.
func seal(mk []byte, header messageHeader, padded []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[chacha20poly1305.NonceSize-4:], header.MessageIndex)
	return aead.Seal(nil, nonce, padded, headerBytes(header)), nil
}

func headerBytes(h messageHeader) []byte {
	out := make([]byte, 0, 32+8)
	out = append(out, h.RatchetKey[:]...)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.PreviousChainLength)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], h.MessageIndex)
	out = append(out, b[:]...)
	return out
}

// Compile-time assertions for the domain contracts.
var (
	_ domain.SessionCipher = (*Cipher)(nil)
	_ domain.CipherFactory = (*Factory)(nil)
)
