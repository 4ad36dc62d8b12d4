package identity

import (
	"context"

	"github.com/contentnexus/iam-service/internal/keycloak"
)

// TokenAPI is the token-endpoint surface the orchestrators depend on.
type TokenAPI interface {
	ServiceAccountToken(ctx context.Context) (string, error)
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error)
	Introspect(ctx context.Context, token string) (*keycloak.Introspection, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// AdminAPI is the administrative surface the orchestrators depend on.
// Every call takes the bearer token to use.
type AdminAPI interface {
	LookupUserID(ctx context.Context, token, username string) (string, bool, error)
	CreateUser(ctx context.Context, token string, u keycloak.NewUser) error
	ResetPassword(ctx context.Context, token, userID string, cred keycloak.Credential) error
	LookupGroupID(ctx context.Context, token, name string) (string, bool, error)
	AddUserToGroup(ctx context.Context, token, userID, groupID string) error
	LookupRealmRole(ctx context.Context, token, name string) (*keycloak.Role, error)
	AssignRealmRole(ctx context.Context, token, userID string, role keycloak.Role) error
	UserSessions(ctx context.Context, token, userID string) ([]keycloak.Session, error)
}

// EventPublisher is the fire-and-forget event boundary.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}
