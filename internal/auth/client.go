package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired means the refresh credential could not be rotated, or the
// retried call was rejected again. The caller should send the user back
// through the login flow.
var ErrSessionExpired = errors.New("session expired")

// ExpiredCredentialHeader is the WWW-Authenticate value the guard emits when
// a structurally valid token is past its expiry. RefreshingClient keys its
// single refresh attempt on this signal and nothing else.
const ExpiredCredentialHeader = `Bearer error="invalid_token", error_description="token expired"`

// RefreshingClient wraps an HTTP client with at most one credential refresh
// and one retry per originating call. It never loops: a second expiry signal
// on the retried call surfaces ErrSessionExpired.
type RefreshingClient struct {
	base       *http.Client
	refreshURL string
	timeout    time.Duration

	mu      sync.Mutex
	access  string
	refresh string
}

func NewRefreshingClient(base *http.Client, refreshURL string, pair TokenPair, timeout time.Duration) *RefreshingClient {
	if base == nil {
		base = http.DefaultClient
	}
	return &RefreshingClient{
		base:       base,
		refreshURL: refreshURL,
		timeout:    timeout,
		access:     pair.AccessToken,
		refresh:    pair.RefreshToken,
	}
}

// Do executes the request with the current access credential. On an
// expired-credential rejection it rotates the credential once and retries the
// original request once.
func (c *RefreshingClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if !isExpiredCredential(resp) {
		return resp, nil
	}
	drain(resp)

	if err := c.rotate(req.Context()); err != nil {
		return nil, ErrSessionExpired
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, fmt.Errorf("clone request for retry: %w", err)
	}
	resp, err = c.send(retry)
	if err != nil {
		return nil, err
	}
	if isExpiredCredential(resp) {
		drain(resp)
		return nil, ErrSessionExpired
	}
	return resp, nil
}

func (c *RefreshingClient) send(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	access := c.access
	c.mu.Unlock()

	req.Header.Set("Authorization", "Bearer "+access)
	return c.base.Do(req)
}

// rotate calls the refresh endpoint exactly once, bounded by the configured
// timeout, and replaces the stored credential material on success.
func (c *RefreshingClient) rotate(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return fmt.Errorf("refresh call: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return ErrRefreshFailed
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return ErrRefreshFailed
	}

	c.mu.Lock()
	c.access = pair.AccessToken
	c.refresh = pair.RefreshToken
	c.mu.Unlock()
	return nil
}

func isExpiredCredential(resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized {
		return false
	}
	return strings.Contains(resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
