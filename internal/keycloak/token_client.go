package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultTimeout = 10 * time.Second

// TokenClient talks to the authorization server's token endpoints:
// password grant, client-credentials grant, introspection and
// revocation. It is stateless; every call builds a fresh request.
type TokenClient struct {
	cfg Config
	hc  *http.Client
}

// NewTokenClient creates a TokenClient. Passing a nil http.Client
// installs one with a bounded request timeout.
func NewTokenClient(cfg Config, hc *http.Client) *TokenClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &TokenClient{cfg: cfg, hc: hc}
}

// ServiceAccountToken obtains a fresh client-credentials token for
// administrative operations. No caching: a new token is fetched on
// every call so a stale service-account token is never served.
func (c *TokenClient) ServiceAccountToken(ctx context.Context) (string, error) {
	conf := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.tokenURL(),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, c.hc))
	if err != nil {
		return "", fmt.Errorf("service account token: %w", err)
	}
	return tok.AccessToken, nil
}

// PasswordGrant exchanges a username and password for a token set. The
// raw payload is returned so callers can pass it through unchanged.
func (c *TokenClient) PasswordGrant(ctx context.Context, username, password string) (*TokenSet, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"password"},
		"username":      {username},
		"password":      {password},
	}

	var ts TokenSet
	if err := c.postForm(ctx, c.cfg.tokenURL(), form, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// Introspect reports whether the given token is currently active.
func (c *TokenClient) Introspect(ctx context.Context, token string) (*Introspection, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"token":         {token},
	}

	var in Introspection
	if err := c.postForm(ctx, c.cfg.introspectURL(), form, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Revoke submits the refresh token to the logout endpoint, ending the
// session it belongs to.
func (c *TokenClient) Revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {refreshToken},
	}
	return c.postForm(ctx, c.cfg.logoutURL(), form, nil)
}

func (c *TokenClient) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
