package keycloak

import "fmt"

// TokenSet is the token endpoint's response payload. Field names match
// the wire format so the login handler can return it unchanged.
type TokenSet struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type"`
	SessionState     string `json:"session_state,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

// Introspection is the introspection endpoint's response. Only Active
// is guaranteed; the remaining claims are present for active tokens.
type Introspection struct {
	Active   bool   `json:"active"`
	Username string `json:"username,omitempty"`
	Subject  string `json:"sub,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// Credential is a single credential record pushed to the reset-password
// endpoint. Value holds the plaintext secret only for the duration of
// the call and is never persisted.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// NewUser is the minimal creation payload for the admin users endpoint.
type NewUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Enabled   bool   `json:"enabled"`
}

// Role is a realm role as returned by the roles endpoint.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is an active user session as listed by the admin API.
type Session struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// APIError carries a non-2xx response from the authorization server so
// callers can map the upstream status through unchanged.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keycloak: unexpected status %d: %s", e.StatusCode, e.Body)
}
