package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/contentnexus/iam-service/internal/keycloak"
)

// Introspector reports whether a token is currently active.
type Introspector interface {
	Introspect(ctx context.Context, token string) (*keycloak.Introspection, error)
}

// Principal is the authenticated caller attached to the request
// context by RequireAuth.
type Principal struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type contextKey string

// PrincipalContextKey is the context key under which RequireAuth
// stores the Principal.
const PrincipalContextKey contextKey = "principal"

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireAuth rejects requests whose bearer token does not introspect
// as active, then attaches a Principal carrying the token's realm
// roles to the request context. This service holds no signing keys;
// token validity is the authorization server's verdict.
func RequireAuth(introspector Introspector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			in, err := introspector.Introspect(r.Context(), token)
			if err != nil || !in.Active {
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			principal := &Principal{
				UserID:   in.Subject,
				Username: in.Username,
				Roles:    realmRoles(token),
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal retrieves the authenticated caller from the context.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return principal, ok
}

// realmRoles reads realm_access.roles out of the access token's
// claims. The token was already vouched for by introspection, so the
// claims are parsed without signature verification.
func realmRoles(token string) []string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	realmAccess, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	rawRoles, ok := realmAccess["roles"].([]any)
	if !ok {
		return nil
	}

	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if role, ok := r.(string); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
