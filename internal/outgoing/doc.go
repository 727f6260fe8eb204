// Package outgoing implements the per-recipient dispatch of an encrypted
// message: device discovery, session establishment, padded per-device
// encryption, bundled transmission, and reconciliation of the local device
// set against the server's 409/410 signals. Outcomes are delivered to
// registered observers, never as returned errors.
package outgoing
