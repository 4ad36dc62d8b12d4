package identity

import (
	"errors"
	"fmt"

	"github.com/contentnexus/iam-service/internal/keycloak"
)

// Terminal outcomes of the orchestrated flows. Advisory (best-effort)
// step failures never surface through these; they land in the result's
// Warnings instead.
var (
	ErrUserExists         = errors.New("user already exists")
	ErrIDResolution       = errors.New("user id could not be resolved after creation")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUpstream           = errors.New("authorization server unavailable")
)

// classifyUpstream keeps *keycloak.APIError intact so the upstream
// status can map through unchanged, and folds transport-level failures
// into ErrUpstream.
func classifyUpstream(err error) error {
	var apiErr *keycloak.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
