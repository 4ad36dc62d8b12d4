package keycloak

import "fmt"

// Config holds the immutable connection settings for the authorization
// server. It is injected once at client construction; nothing in this
// package mutates it afterwards.
type Config struct {
	BaseURL      string // e.g. http://localhost:8081
	Realm        string
	ClientID     string
	ClientSecret string
}

func (c Config) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.BaseURL, c.Realm)
}

func (c Config) introspectURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", c.BaseURL, c.Realm)
}

func (c Config) logoutURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", c.BaseURL, c.Realm)
}

func (c Config) adminURL(path string) string {
	return fmt.Sprintf("%s/admin/realms/%s%s", c.BaseURL, c.Realm, path)
}
