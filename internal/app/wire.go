package app

import (
	"net/http"

	"go.uber.org/zap"

	"courier/internal/domain"
	"courier/internal/outgoing"
	"courier/internal/protocol/session"
	"courier/internal/store"
	"courier/internal/transport"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Sessions    domain.SessionStore
	Identities  domain.IdentityStore
	Credentials domain.CredentialStore
	Transport   domain.SignalTransport
	Ciphers     domain.CipherFactory
	Log         *zap.Logger
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	var logger *zap.Logger
	var err error
	if cfg.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	sessionStore := store.NewSessionFileStore(cfg.Home)
	identityStore := store.NewIdentityFileStore(cfg.Home)
	credentialStore := store.NewCredentialFileStore(cfg.Home)

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	tc := transport.New(cfg.ServerURL, httpClient, credentialStore, logger)

	return &Wire{
		Sessions:    sessionStore,
		Identities:  identityStore,
		Credentials: credentialStore,
		Transport:   tc,
		Ciphers:     session.NewFactory(sessionStore),
		Log:         logger,
	}, nil
}

// NewOutgoing builds a single-use dispatch for one plaintext. The identity
// is loaded with passphrase so the session builder can initiate X3DH.
func (w *Wire) NewOutgoing(passphrase string, timestamp uint64, plaintext []byte) (*outgoing.OutgoingMessage, error) {
	id, err := w.Identities.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	builder := session.NewBuilder(w.Sessions, id)
	return outgoing.New(w.Transport, w.Sessions, w.Ciphers, builder, timestamp, plaintext, w.Log), nil
}
