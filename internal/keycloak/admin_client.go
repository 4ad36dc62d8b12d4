package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AdminClient talks to the authorization server's administrative REST
// surface. Every method takes the bearer token to use, so the caller
// decides when a fresh service-account token is fetched.
type AdminClient struct {
	cfg Config
	hc  *http.Client
}

// NewAdminClient creates an AdminClient. Passing a nil http.Client
// installs one with a bounded request timeout.
func NewAdminClient(cfg Config, hc *http.Client) *AdminClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &AdminClient{cfg: cfg, hc: hc}
}

// LookupUserID resolves a username to the server's user id. The second
// return value reports whether a user was found at all.
func (c *AdminClient) LookupUserID(ctx context.Context, token, username string) (string, bool, error) {
	endpoint := c.cfg.adminURL("/users") + "?username=" + url.QueryEscape(username)

	var users []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &users); err != nil {
		return "", false, err
	}
	if len(users) == 0 {
		return "", false, nil
	}
	return users[0].ID, true, nil
}

// CreateUser submits the minimal user payload to the creation endpoint.
// The response carries no id; callers re-resolve it via LookupUserID.
func (c *AdminClient) CreateUser(ctx context.Context, token string, u NewUser) error {
	return c.do(ctx, http.MethodPost, c.cfg.adminURL("/users"), token, u, nil)
}

// ResetPassword pushes a credential for the given user id.
func (c *AdminClient) ResetPassword(ctx context.Context, token, userID string, cred Credential) error {
	endpoint := c.cfg.adminURL("/users/" + url.PathEscape(userID) + "/reset-password")
	return c.do(ctx, http.MethodPut, endpoint, token, cred, nil)
}

// LookupGroupID resolves a group name to its id by listing the realm's
// groups and matching on name.
func (c *AdminClient) LookupGroupID(ctx context.Context, token, name string) (string, bool, error) {
	var groups []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.adminURL("/groups"), token, nil, &groups); err != nil {
		return "", false, err
	}
	for _, g := range groups {
		if g.Name == name {
			return g.ID, true, nil
		}
	}
	return "", false, nil
}

// AddUserToGroup assigns group membership for the given user id.
func (c *AdminClient) AddUserToGroup(ctx context.Context, token, userID, groupID string) error {
	endpoint := c.cfg.adminURL("/users/" + url.PathEscape(userID) + "/groups/" + url.PathEscape(groupID))
	return c.do(ctx, http.MethodPut, endpoint, token, struct{}{}, nil)
}

// LookupRealmRole fetches a realm role by name.
func (c *AdminClient) LookupRealmRole(ctx context.Context, token, name string) (*Role, error) {
	endpoint := c.cfg.adminURL("/roles/" + url.PathEscape(name))

	var role Role
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// AssignRealmRole maps a realm role onto the given user id.
func (c *AdminClient) AssignRealmRole(ctx context.Context, token, userID string, role Role) error {
	endpoint := c.cfg.adminURL("/users/" + url.PathEscape(userID) + "/role-mappings/realm")
	return c.do(ctx, http.MethodPost, endpoint, token, []Role{role}, nil)
}

// UserSessions lists the user's active sessions.
func (c *AdminClient) UserSessions(ctx context.Context, token, userID string) ([]Session, error) {
	endpoint := c.cfg.adminURL("/users/" + url.PathEscape(userID) + "/sessions")

	var sessions []Session
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *AdminClient) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
