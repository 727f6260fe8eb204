package creds

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"courier/internal/domain"
)

// ErrNoCredential is returned when the store holds nothing to refresh.
var ErrNoCredential = errors.New("no credential stored")

// minLifetime is the remaining-lifetime floor below which a refresh happens
// immediately instead of being scheduled.
const minLifetime = time.Second

// Refresher keeps the stored credential fresh against the server.
type Refresher struct {
	store     domain.CredentialStore
	transport domain.SignalTransport
	log       *zap.Logger

	now func() time.Time
}

// New constructs a Refresher.
func New(store domain.CredentialStore, transport domain.SignalTransport, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{store: store, transport: transport, log: log, now: time.Now}
}

// Run refreshes the credential until ctx is cancelled. Each cycle reads the
// stored token, refreshes it when its remaining lifetime is under a second,
// and otherwise sleeps half the remaining lifetime before rechecking.
func (r *Refresher) Run(ctx context.Context) error {
	for {
		delay, err := r.nextDelay()
		if err != nil {
			return err
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}
		if err := r.refresh(ctx); err != nil {
			return err
		}
	}
}

// nextDelay returns how long to wait before the next check: zero when the
// token must be refreshed now, half the remaining lifetime otherwise.
func (r *Refresher) nextDelay() (time.Duration, error) {
	cred, ok, err := r.store.LoadCredential()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoCredential
	}
	remaining, err := r.remainingLifetime(cred.Token)
	if err != nil {
		return 0, err
	}
	if remaining < minLifetime {
		return 0, nil
	}
	return remaining / 2, nil
}

// remainingLifetime decodes the token's exp claim without verifying the
// signature; the server is the verifier, we only schedule against it.
func (r *Refresher) remainingLifetime(token string) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return 0, err
	}
	if exp == nil {
		return 0, errors.New("token has no expiry")
	}
	return exp.Time.Sub(r.now()), nil
}

func (r *Refresher) refresh(ctx context.Context) error {
	cred, ok, err := r.store.LoadCredential()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoCredential
	}

	op := func() error {
		fresh, err := r.transport.RefreshCredential(ctx, cred.RefreshToken)
		if err != nil {
			r.log.Warn("credential refresh failed", zap.Error(err))
			return err
		}
		return r.store.SaveCredential(fresh)
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return err
	}
	r.log.Info("credential refreshed")
	return nil
}
