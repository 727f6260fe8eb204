// Package transport implements the HTTP client for the message server: key
// fetches, message submission, and credential refresh. Non-2xx responses are
// decoded into *types.ProtocolError so callers can drive device-set
// reconciliation; network failures propagate unchanged.
package transport
