package identity

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/contentnexus/iam-service/internal/events"
	"github.com/contentnexus/iam-service/internal/keycloak"
)

// DefaultGroup is the group every freshly registered user joins.
const DefaultGroup = "users"

const publishTimeout = 10 * time.Second

// Registration is the caller-owned user descriptor for one Register
// call. Password is held in memory only until it has been pushed to
// the authorization server.
type Registration struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// RegistrationResult reports the outcome of a successful registration.
// Warnings lists advisory-step failures (credential set, group or role
// assignment) that did not abort the operation.
type RegistrationResult struct {
	UserID   string
	Warnings []string
}

// Registrar drives the multi-step user creation sequence against the
// authorization server and emits a lifecycle event on success.
type Registrar struct {
	tokens    TokenAPI
	admin     AdminAPI
	publisher EventPublisher
}

// NewRegistrar creates a Registrar.
func NewRegistrar(tokens TokenAPI, admin AdminAPI, publisher EventPublisher) *Registrar {
	return &Registrar{tokens: tokens, admin: admin, publisher: publisher}
}

// Register creates the user in the authorization server. The existence
// check, creation call and id re-resolution are the critical path;
// everything after that is best-effort and reported via Warnings. The
// existence check runs before any mutation, so retrying a failed call
// never duplicates users.
func (r *Registrar) Register(ctx context.Context, reg Registration) (*RegistrationResult, error) {
	log.Printf("[Registrar] registering user %q", reg.Username)

	token, err := r.tokens.ServiceAccountToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	_, found, err := r.admin.LookupUserID(ctx, token, reg.Username)
	if err != nil {
		return nil, classifyUpstream(err)
	}
	if found {
		return nil, ErrUserExists
	}

	newUser := keycloak.NewUser{
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Enabled:   true,
	}
	if err := r.admin.CreateUser(ctx, token, newUser); err != nil {
		return nil, classifyUpstream(err)
	}

	// The creation response carries no id, so resolve it with a second
	// lookup. If this fails the user exists upstream without a usable
	// continuation here; surface that window as its own error.
	userID, found, err := r.admin.LookupUserID(ctx, token, reg.Username)
	if err != nil {
		log.Printf("[Registrar] id lookup after create failed for %q: %v", reg.Username, err)
		return nil, ErrIDResolution
	}
	if !found {
		return nil, ErrIDResolution
	}

	result := &RegistrationResult{UserID: userID}

	cred := keycloak.Credential{Type: "password", Value: reg.Password, Temporary: false}
	if err := r.admin.ResetPassword(ctx, token, userID, cred); err != nil {
		r.warn(result, "set password for %q: %v", reg.Username, err)
	}

	r.assignGroup(ctx, token, userID, reg.Username, result)

	if reg.Role != "" {
		r.assignRole(ctx, token, userID, reg.Role, result)
	}

	r.publishCreated(reg, userID)

	return result, nil
}

func (r *Registrar) assignGroup(ctx context.Context, token, userID, username string, result *RegistrationResult) {
	groupID, found, err := r.admin.LookupGroupID(ctx, token, DefaultGroup)
	if err != nil {
		r.warn(result, "look up group %q: %v", DefaultGroup, err)
		return
	}
	if !found {
		r.warn(result, "group %q not found", DefaultGroup)
		return
	}
	if err := r.admin.AddUserToGroup(ctx, token, userID, groupID); err != nil {
		r.warn(result, "assign %q to group %q: %v", username, DefaultGroup, err)
		return
	}
	log.Printf("[Registrar] assigned user %q to group %q", username, DefaultGroup)
}

func (r *Registrar) assignRole(ctx context.Context, token, userID, roleName string, result *RegistrationResult) {
	role, err := r.admin.LookupRealmRole(ctx, token, roleName)
	if err != nil {
		r.warn(result, "look up role %q: %v", roleName, err)
		return
	}
	if err := r.admin.AssignRealmRole(ctx, token, userID, *role); err != nil {
		r.warn(result, "assign role %q: %v", roleName, err)
		return
	}
	log.Printf("[Registrar] assigned role %q to user %s", roleName, userID)
}

// publishCreated hands the lifecycle event to the publisher without
// awaiting delivery. A publish failure is logged, never surfaced to
// the registration response already prepared.
func (r *Registrar) publishCreated(reg Registration, userID string) {
	event := events.UserEvent{
		EventID:   uuid.New().String(),
		CreatedAt: time.Now(),
		UserID:    userID,
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Role:      reg.Role,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.publisher.Publish(ctx, userID, event); err != nil {
			log.Printf("[Registrar] user event publish failed for %q: %v", reg.Username, err)
			return
		}
		log.Printf("[Registrar] user creation event published for %q", reg.Username)
	}()
}

func (r *Registrar) warn(result *RegistrationResult, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	result.Warnings = append(result.Warnings, msg)
	log.Printf("[Registrar] %s", msg)
}
