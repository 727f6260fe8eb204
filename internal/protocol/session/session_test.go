package session

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"courier/internal/domain"
)

// memStore is an in-memory SessionStore for exercising the session machine.
type memStore struct {
	sessions   map[string]domain.SessionRecord
	identities map[domain.Address]domain.X25519Public
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   map[string]domain.SessionRecord{},
		identities: map[domain.Address]domain.X25519Public{},
	}
}

func (s *memStore) GetDeviceIDs(addr domain.Address) ([]domain.DeviceID, error) {
	var ids []domain.DeviceID
	for _, rec := range s.sessions {
		if rec.Addr == addr {
			ids = append(ids, rec.DeviceID)
		}
	}
	return ids, nil
}

func (s *memStore) RemoveSession(encoded string) error {
	delete(s.sessions, encoded)
	return nil
}

func (s *memStore) LoadSessionRecord(encoded string) (domain.SessionRecord, bool, error) {
	rec, ok := s.sessions[encoded]
	return rec, ok, nil
}

func (s *memStore) SaveSessionRecord(encoded string, rec domain.SessionRecord) error {
	s.sessions[encoded] = rec
	return nil
}

func (s *memStore) LoadPeerIdentity(addr domain.Address) (domain.X25519Public, bool, error) {
	key, ok := s.identities[addr]
	return key, ok, nil
}

func (s *memStore) SavePeerIdentity(addr domain.Address, key domain.X25519Public) error {
	s.identities[addr] = key
	return nil
}

var _ domain.SessionStore = (*memStore)(nil)

// peerBundle builds a well-formed bundle for one device of a fresh peer.
func peerBundle(t *testing.T, device domain.DeviceID) domain.PreKeyBundle {
	t.Helper()

	_, idPub, err := generateX25519()
	require.NoError(t, err)
	_, spkPub, err := generateX25519()
	require.NoError(t, err)
	_, opkPub, err := generateX25519()
	require.NoError(t, err)

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var signing domain.Ed25519Public
	copy(signing[:], edPub)

	return domain.PreKeyBundle{
		DeviceID:       device,
		RegistrationID: uint32(4000 + device),
		IdentityKey:    idPub,
		SigningKey:     signing,
		SignedPreKey: domain.SignedPreKey{
			ID:        11,
			Public:    spkPub,
			Signature: ed25519.Sign(edPriv, spkPub.Slice()),
		},
		PreKey: &domain.OneTimePreKey{ID: 42, Public: opkPub},
	}
}

func testIdentity(t *testing.T) domain.Identity {
	t.Helper()
	id, err := NewIdentity()
	require.NoError(t, err)
	return id
}

func TestProcessPreKey_FirstContactBuildsSession(t *testing.T) {
	store := newMemStore()
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 1)

	require.NoError(t, builder.ProcessPreKey(context.Background(), "alice", bundle))

	rec, ok := store.sessions["alice.1"]
	require.True(t, ok)
	require.Equal(t, bundle.RegistrationID, rec.RegistrationID)
	require.Equal(t, bundle.IdentityKey, rec.PeerIdentityKey)
	require.NotEmpty(t, rec.SendChainKey)
	require.NotEmpty(t, rec.RootKey)
	require.False(t, rec.Closed)

	require.NotNil(t, rec.PendingPreKey)
	require.Equal(t, uint32(11), rec.PendingPreKey.SignedPreKeyID)
	require.NotNil(t, rec.PendingPreKey.PreKeyID)
	require.Equal(t, uint32(42), *rec.PendingPreKey.PreKeyID)

	// First contact is trust-on-first-use.
	stored, ok := store.identities["alice"]
	require.True(t, ok)
	require.Equal(t, bundle.IdentityKey, stored)
}

func TestProcessPreKey_ChangedIdentityIsRejected(t *testing.T) {
	store := newMemStore()
	store.identities["alice"] = domain.X25519Public{9, 9, 9}
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 1)

	err := builder.ProcessPreKey(context.Background(), "alice", bundle)

	var untrusted *UntrustedIdentityError
	require.ErrorAs(t, err, &untrusted)
	require.Equal(t, bundle.IdentityKey, untrusted.IdentityKey)
	require.Empty(t, store.sessions, "no session state before acceptance")
	require.Equal(t, domain.X25519Public{9, 9, 9}, store.identities["alice"], "stored key untouched")
}

func TestProcessPreKey_AcceptedRotationRebuilds(t *testing.T) {
	store := newMemStore()
	store.identities["alice"] = domain.X25519Public{9, 9, 9}
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 1)

	// Acceptance is recording the new key; the retry then succeeds.
	require.NoError(t, store.SavePeerIdentity("alice", bundle.IdentityKey))
	require.NoError(t, builder.ProcessPreKey(context.Background(), "alice", bundle))
	_, ok := store.sessions["alice.1"]
	require.True(t, ok)
}

func TestProcessPreKey_BadSignatureFails(t *testing.T) {
	store := newMemStore()
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 1)
	bundle.SignedPreKey.Signature[0] ^= 0xFF

	err := builder.ProcessPreKey(context.Background(), "alice", bundle)
	require.ErrorIs(t, err, ErrBadSignature)
	require.Empty(t, store.sessions)
}

func TestProcessPreKey_WithoutOneTimePreKey(t *testing.T) {
	store := newMemStore()
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 2)
	bundle.PreKey = nil

	require.NoError(t, builder.ProcessPreKey(context.Background(), "alice", bundle))
	rec := store.sessions["alice.2"]
	require.NotNil(t, rec.PendingPreKey)
	require.Nil(t, rec.PendingPreKey.PreKeyID)
}

func TestCipher_EncryptAdvancesChain(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	builder := NewBuilder(store, testIdentity(t))
	require.NoError(t, builder.ProcessPreKey(ctx, "alice", peerBundle(t, 1)))

	cipher := NewFactory(store).CipherFor("alice", 1)

	open, err := cipher.HasOpenSession(ctx)
	require.NoError(t, err)
	require.True(t, open)

	padded := make([]byte, 159)
	padded[0] = 0x80

	first, err := cipher.Encrypt(ctx, padded)
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyType, first.Type, "unconfirmed sessions send pre-key messages")
	require.Equal(t, uint32(4001), first.RegistrationID)

	second, err := cipher.Encrypt(ctx, padded)
	require.NoError(t, err)
	require.NotEqual(t, first.Body, second.Body, "message keys are never reused")

	rec := store.sessions["alice.1"]
	require.Equal(t, uint32(2), rec.SendMessageIndex)
}

func TestCipher_CloseOpenSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	builder := NewBuilder(store, testIdentity(t))
	bundle := peerBundle(t, 1)
	require.NoError(t, builder.ProcessPreKey(ctx, "alice", bundle))

	cipher := NewFactory(store).CipherFor("alice", 1)
	require.NoError(t, cipher.CloseOpenSession(ctx))

	open, err := cipher.HasOpenSession(ctx)
	require.NoError(t, err)
	require.False(t, open)

	_, err = cipher.Encrypt(ctx, make([]byte, 159))
	require.ErrorIs(t, err, ErrNoSession)

	// Rebuilding from the same bundle reopens the device.
	require.NoError(t, builder.ProcessPreKey(ctx, "alice", bundle))
	open, err = cipher.HasOpenSession(ctx)
	require.NoError(t, err)
	require.True(t, open)
}

func TestCipher_CloseWithoutRecordIsNoop(t *testing.T) {
	store := newMemStore()
	cipher := NewFactory(store).CipherFor("ghost", 5)
	require.NoError(t, cipher.CloseOpenSession(context.Background()))
}
