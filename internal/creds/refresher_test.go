package creds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"courier/internal/domain"
)

type memCreds struct {
	cred domain.Credential
	ok   bool
}

func (m *memCreds) SaveCredential(cred domain.Credential) error {
	m.cred, m.ok = cred, true
	return nil
}

func (m *memCreds) LoadCredential() (domain.Credential, bool, error) {
	return m.cred, m.ok, nil
}

type refreshTransport struct {
	refreshed int
	result    domain.Credential
	err       error
}

func (t *refreshTransport) GetKeysForAddr(ctx context.Context, addr domain.Address) (domain.PreKeyResponse, error) {
	return domain.PreKeyResponse{}, errors.New("not implemented")
}

func (t *refreshTransport) GetKeysForDevice(ctx context.Context, addr domain.Address, device domain.DeviceID) (domain.PreKeyResponse, error) {
	return domain.PreKeyResponse{}, errors.New("not implemented")
}

func (t *refreshTransport) SendMessages(ctx context.Context, addr domain.Address, msgs []domain.EncryptedDeviceMessage, timestamp uint64) error {
	return errors.New("not implemented")
}

func (t *refreshTransport) RefreshCredential(ctx context.Context, refreshToken string) (domain.Credential, error) {
	t.refreshed++
	return t.result, t.err
}

func tokenExpiringIn(t *testing.T, d time.Duration, now time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(d).Unix(),
		"sub": "u1",
	})
	signed, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestNextDelay_HalfRemainingLifetime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &memCreds{ok: true}
	store.cred = domain.Credential{Token: tokenExpiringIn(t, time.Hour, now), RefreshToken: "r"}

	r := New(store, &refreshTransport{}, nil)
	r.now = func() time.Time { return now }

	delay, err := r.nextDelay()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, delay)
}

func TestNextDelay_RefreshesImmediatelyNearExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &memCreds{ok: true}
	store.cred = domain.Credential{Token: tokenExpiringIn(t, 500*time.Millisecond, now), RefreshToken: "r"}

	r := New(store, &refreshTransport{}, nil)
	r.now = func() time.Time { return now }

	delay, err := r.nextDelay()
	require.NoError(t, err)
	require.Zero(t, delay)
}

func TestNextDelay_ExpiredTokenRefreshesNow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &memCreds{ok: true}
	store.cred = domain.Credential{Token: tokenExpiringIn(t, -time.Minute, now), RefreshToken: "r"}

	r := New(store, &refreshTransport{}, nil)
	r.now = func() time.Time { return now }

	delay, err := r.nextDelay()
	require.NoError(t, err)
	require.Zero(t, delay)
}

func TestNextDelay_NoCredential(t *testing.T) {
	r := New(&memCreds{}, &refreshTransport{}, nil)
	_, err := r.nextDelay()
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestRefresh_SavesFreshCredential(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &memCreds{ok: true}
	store.cred = domain.Credential{Token: tokenExpiringIn(t, -time.Minute, now), RefreshToken: "refresh-1"}

	fresh := domain.Credential{Token: tokenExpiringIn(t, time.Hour, now), RefreshToken: "refresh-2"}
	transport := &refreshTransport{result: fresh}

	r := New(store, transport, nil)
	r.now = func() time.Time { return now }

	require.NoError(t, r.refresh(context.Background()))
	require.Equal(t, 1, transport.refreshed)
	require.Equal(t, fresh, store.cred)
}

func TestRun_StopsOnCancel(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := &memCreds{ok: true}
	store.cred = domain.Credential{Token: tokenExpiringIn(t, time.Hour, now), RefreshToken: "r"}

	r := New(store, &refreshTransport{}, nil)
	r.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop on cancel")
	}
}
