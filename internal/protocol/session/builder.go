package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier/internal/domain"
)

// UntrustedIdentityError signals that an address presented an identity key
// differing from the stored one. No session state is touched until the new
// key has been accepted and recorded.
type UntrustedIdentityError struct {
	Addr        domain.Address
	IdentityKey domain.X25519Public
}

// Error implements the error interface.
func (e *UntrustedIdentityError) Error() string {
	return fmt.Sprintf("untrusted identity key for %q", e.Addr)
}

// ErrBadSignature is returned when a bundle's signed pre-key signature does
// not verify against the address's signing key.
var ErrBadSignature = errors.New("signed pre-key signature verification failed")

// Builder bootstraps sessions from fetched pre-key bundles.
type Builder struct {
	store    domain.SessionStore
	identity domain.Identity
}

// NewBuilder constructs a Builder over store, initiating as identity.
func NewBuilder(store domain.SessionStore, identity domain.Identity) *Builder {
	return &Builder{store: store, identity: identity}
}

// ProcessPreKey verifies the bundle, runs X3DH as the initiator, seeds a
// sending ratchet, and persists the record under "addr.deviceId". The first
// key seen for an address is trusted and recorded; a different key than the
// stored one returns *UntrustedIdentityError and leaves all state untouched.
func (b *Builder) ProcessPreKey(ctx context.Context, addr domain.Address, bundle domain.PreKeyBundle) error {
	stored, known, err := b.store.LoadPeerIdentity(addr)
	if err != nil {
		return err
	}
	if known && stored != bundle.IdentityKey {
		return &UntrustedIdentityError{Addr: addr, IdentityKey: bundle.IdentityKey}
	}

	if !verifySignedPreKey(bundle.SigningKey, bundle.SignedPreKey) {
		return ErrBadSignature
	}

	ephPriv, ephPub, err := generateX25519()
	if err != nil {
		return err
	}

	var peerOPK *domain.X25519Public
	var preKeyID *uint32
	if bundle.PreKey != nil {
		peerOPK = &bundle.PreKey.Public
		id := bundle.PreKey.ID
		preKeyID = &id
	}

	root, err := initiatorRootKey(
		b.identity.XPriv,
		ephPriv,
		bundle.IdentityKey,
		bundle.SignedPreKey.Public,
		peerOPK,
	)
	if err != nil {
		return err
	}

	// Seed the sending chain with a fresh ratchet key against the peer's
	// signed pre-key, which acts as their initial ratchet key.
	ratchetPriv, ratchetPub, err := generateX25519()
	if err != nil {
		return err
	}
	dh, err := x25519(ratchetPriv, bundle.SignedPreKey.Public)
	if err != nil {
		return err
	}
	newRoot, sendCK := kdfRoot(root, dh[:])

	rec := domain.SessionRecord{
		Addr:              addr,
		DeviceID:          bundle.DeviceID,
		RegistrationID:    bundle.RegistrationID,
		PeerIdentityKey:   bundle.IdentityKey,
		RootKey:           newRoot,
		SendChainKey:      sendCK,
		RatchetPrivate:    ratchetPriv,
		RatchetPublic:     ratchetPub,
		PeerRatchetPublic: bundle.SignedPreKey.Public,
		PendingPreKey: &domain.PendingPreKey{
			SignedPreKeyID: bundle.SignedPreKey.ID,
			PreKeyID:       preKeyID,
			BaseKey:        ephPub,
			IdentityKey:    b.identity.XPub,
		},
		CreatedUTC: time.Now().Unix(),
	}

	if !known {
		if err := b.store.SavePeerIdentity(addr, bundle.IdentityKey); err != nil {
			return err
		}
	}
	return b.store.SaveSessionRecord(domain.EncodedDevice(addr, bundle.DeviceID), rec)
}

// Compile-time assertion that Builder implements domain.SessionBuilder.
var _ domain.SessionBuilder = (*Builder)(nil)
