// Package session implements the per-device cryptographic session machine:
// bootstrapping a sending ratchet from a fetched pre-key bundle (X3DH as
// initiator) and encrypting padded payloads over the stored record. Identity
// continuity is enforced before any session state is touched.
package session
