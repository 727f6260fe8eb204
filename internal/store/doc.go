// Package store persists client state on disk: session records and peer
// identity keys, our own passphrase-protected identity, and the server
// credential. All files live under one directory and are written atomically.
package store
