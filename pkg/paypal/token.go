package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryMargin is subtracted from the provider-reported lifetime so a
// token is never handed out moments before it expires mid-request.
const tokenExpiryMargin = time.Minute

// tokenCache holds the current bearer token for one credential set.
// Callers serialize on mu across the whole check-refresh-store section, so a
// cold cache under N concurrent callers produces exactly one mint request and
// every caller observes the refreshed token.
type tokenCache struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// token returns a valid bearer token, minting a new one when the cached token
// is missing or within tokenExpiryMargin of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()

	if c.tokens.value != "" && time.Now().Before(c.tokens.expiresAt.Add(-tokenExpiryMargin)) {
		return c.tokens.value, nil
	}

	tok, err := c.mintToken(ctx)
	if err != nil {
		return "", err
	}

	c.tokens.value = tok.AccessToken
	c.tokens.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.tokens.value, nil
}

// invalidateToken forcibly expires the cached token. Called after the
// provider answers 401 to a request carrying it.
func (c *Client) invalidateToken() {
	c.tokens.mu.Lock()
	c.tokens.value = ""
	c.tokens.expiresAt = time.Time{}
	c.tokens.mu.Unlock()
}

// mintToken performs the client-credentials grant. A rejection is fatal
// (ErrAuthFailed): bad credentials do not fix themselves on retry. Transport
// failures are returned as plain errors so the executor can retry them.
func (c *Client) mintToken(ctx context.Context) (*tokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// The error body can echo credential hints, so only the status code
		// is reported.
		return nil, fmt.Errorf("%w: token endpoint returned status %d", ErrAuthFailed, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: malformed token response", ErrAuthFailed)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrAuthFailed)
	}

	return &tok, nil
}
