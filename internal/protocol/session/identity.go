package session

import (
	"crypto/ed25519"
	"crypto/rand"

	"courier/internal/domain"
)

// NewIdentity returns fresh long-term X25519 and Ed25519 key pairs.
func NewIdentity() (domain.Identity, error) {
	xPriv, xPub, err := generateX25519()
	if err != nil {
		return domain.Identity{}, err
	}
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.Identity{}, err
	}
	id := domain.Identity{XPub: xPub, XPriv: xPriv}
	copy(id.EdPub[:], edPub)
	copy(id.EdPriv[:], edPriv)
	return id, nil
}
