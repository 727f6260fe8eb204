package session

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"courier/internal/domain"
	"courier/internal/util/memzero"
)

// generateX25519 returns a fresh Curve25519 key pair. The private key is
// clamped per RFC 7748.
func generateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

func x25519(priv domain.X25519Private, pub domain.X25519Public) ([32]byte, error) {
	res, err := curve25519.X25519(priv.Slice(), pub.Slice())
	var out [32]byte
	if err != nil {
		return out, err
	}
	copy(out[:], res)
	return out, nil
}

// verifySignedPreKey checks the Ed25519 signature over the signed pre-key.
func verifySignedPreKey(signing domain.Ed25519Public, spk domain.SignedPreKey) bool {
	return ed25519.Verify(signing.Slice(), spk.Public.Slice(), spk.Signature)
}

// initiatorRootKey derives the X3DH root key as the initiator:
// DH(IKa, SPKb) || DH(EKa, IKb) || DH(EKa, SPKb) [|| DH(EKa, OPKb)].
func initiatorRootKey(
	ourIDPriv domain.X25519Private,
	ourEphPriv domain.X25519Private,
	peerIDPub domain.X25519Public,
	peerSPK domain.X25519Public,
	peerOPK *domain.X25519Public,
) ([]byte, error) {
	dh1, err := x25519(ourIDPriv, peerSPK)
	if err != nil {
		return nil, err
	}
	dh2, err := x25519(ourEphPriv, peerIDPub)
	if err != nil {
		return nil, err
	}
	dh3, err := x25519(ourEphPriv, peerSPK)
	if err != nil {
		return nil, err
	}

	concat := make([]byte, 0, 32*4)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	if peerOPK != nil {
		dh4, err := x25519(ourEphPriv, *peerOPK)
		if err != nil {
			return nil, err
		}
		concat = append(concat, dh4[:]...)
	}

	root := hkdfExpand(concat, nil, []byte("x3dh root"), 32)
	memzero.Zero(concat)
	return root, nil
}

// kdfRoot advances the root key with a DH output, yielding the next root key
// and a fresh chain key.
func kdfRoot(rk, dh []byte) (newRK, ck []byte) {
	r := hkdf.New(sha256.New, dh, rk, []byte("dr root"))
	newRK = make([]byte, 32)
	ck = make([]byte, 32)
	_, _ = io.ReadFull(r, newRK)
	_, _ = io.ReadFull(r, ck)
	return
}

// kdfChain advances a chain key, yielding the next chain key and one message key.
func kdfChain(ck []byte) (nextCK, mk []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte("dr chain"))
	nextCK = make([]byte, 32)
	mk = make([]byte, 32)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return
}

func hkdfExpand(ikm, salt, info []byte, outLen int) []byte {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	_, _ = io.ReadFull(r, out)
	return out
}
