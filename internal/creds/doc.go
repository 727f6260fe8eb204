// Package creds keeps the server credential fresh: a long-running loop that
// decodes the stored token's expiry, refreshes it before it lapses, and
// re-schedules itself at half the remaining lifetime.
package creds
