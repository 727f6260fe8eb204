// Package domain re-exports the core types and interfaces shared across the
// client: addresses and devices, pre-key and message wire shapes, session
// records, and the store/transport/cipher contracts the dispatch core
// consumes.
package domain
