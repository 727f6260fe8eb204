package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"courier/internal/domain"
)

// Client talks to the message server over HTTP.
type Client struct {
	Base string
	HTTP *http.Client

	creds domain.CredentialStore
	log   *zap.Logger
}

// New constructs a Client for base. creds may be nil for unauthenticated use.
func New(base string, httpClient *http.Client, creds domain.CredentialStore, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{Base: base, HTTP: httpClient, creds: creds, log: log}
}

// GetKeysForAddr fetches pre-key bundles for every device of addr.
func (c *Client) GetKeysForAddr(ctx context.Context, addr domain.Address) (domain.PreKeyResponse, error) {
	var out domain.PreKeyResponse
	if err := c.getJSON(ctx, "/v1/keys/"+url.PathEscape(addr.String()), &out); err != nil {
		return domain.PreKeyResponse{}, err
	}
	normalize(&out)
	return out, nil
}

// GetKeysForDevice fetches the bundle for one device of addr.
func (c *Client) GetKeysForDevice(
	ctx context.Context,
	addr domain.Address,
	device domain.DeviceID,
) (domain.PreKeyResponse, error) {
	var out domain.PreKeyResponse
	path := "/v1/keys/" + url.PathEscape(addr.String()) + "/" + strconv.FormatUint(uint64(device), 10)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return domain.PreKeyResponse{}, err
	}
	normalize(&out)
	return out, nil
}

// SendMessages transmits the ciphertext set for one recipient. 409 and 410
// responses carry the server's device diff in the returned *ProtocolError.
func (c *Client) SendMessages(
	ctx context.Context,
	addr domain.Address,
	msgs []domain.EncryptedDeviceMessage,
	timestamp uint64,
) error {
	bundle := domain.MessageBundle{Messages: msgs, Timestamp: timestamp}
	return c.putJSON(ctx, "/v1/messages/"+url.PathEscape(addr.String()), bundle, nil)
}

// RefreshCredential exchanges a refresh token for a fresh credential.
func (c *Client) RefreshCredential(ctx context.Context, refreshToken string) (domain.Credential, error) {
	var out domain.Credential
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}
	if err := c.putJSON(ctx, "/v1/auth/refresh", body, &out); err != nil {
		return domain.Credential{}, err
	}
	return out, nil
}

// normalize copies the response-level identity material into each device
// bundle so the session builder sees self-contained bundles.
func normalize(resp *domain.PreKeyResponse) {
	for i := range resp.Devices {
		resp.Devices[i].IdentityKey = resp.IdentityKey
		resp.Devices[i].SigningKey = resp.SigningKey
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) putJSON(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeProtocolError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.creds == nil {
		return
	}
	cred, ok, err := c.creds.LoadCredential()
	if err != nil {
		c.log.Warn("loading credential failed", zap.Error(err))
		return
	}
	if ok {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}
}

// decodeProtocolError turns a non-2xx response into a *types.ProtocolError,
// decoding the 409/410 device diffs when present.
func decodeProtocolError(resp *http.Response) error {
	perr := &domain.ProtocolError{Code: resp.StatusCode, Status: resp.Status}
	switch resp.StatusCode {
	case http.StatusConflict:
		var mm domain.MismatchedDevices
		if err := json.NewDecoder(resp.Body).Decode(&mm); err == nil {
			perr.Mismatched = &mm
		}
	case http.StatusGone:
		var st domain.StaleDevices
		if err := json.NewDecoder(resp.Body).Decode(&st); err == nil {
			perr.Stale = &st
		}
	}
	return perr
}

// Compile-time assertion that Client implements domain.SignalTransport.
var _ domain.SignalTransport = (*Client)(nil)
