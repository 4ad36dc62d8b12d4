package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/contentnexus/iam-service/internal/history"
	"github.com/contentnexus/iam-service/internal/keycloak"
)

// MockTokenAPI is an in-memory stand-in for the token endpoints.
type MockTokenAPI struct {
	ServiceToken    string
	ServiceTokenErr error

	PasswordGrantFn func(username, password string) (*keycloak.TokenSet, error)
	IntrospectFn    func(token string) (*keycloak.Introspection, error)
	RevokeErr       error

	// Tracked calls
	ServiceTokenCalls int
	IntrospectCalls   []string
	RevokeCalls       []string
}

func (m *MockTokenAPI) ServiceAccountToken(ctx context.Context) (string, error) {
	m.ServiceTokenCalls++
	if m.ServiceTokenErr != nil {
		return "", m.ServiceTokenErr
	}
	if m.ServiceToken == "" {
		return "svc-token", nil
	}
	return m.ServiceToken, nil
}

func (m *MockTokenAPI) PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
	if m.PasswordGrantFn != nil {
		return m.PasswordGrantFn(username, password)
	}
	return &keycloak.TokenSet{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}, nil
}

func (m *MockTokenAPI) Introspect(ctx context.Context, token string) (*keycloak.Introspection, error) {
	m.IntrospectCalls = append(m.IntrospectCalls, token)
	if m.IntrospectFn != nil {
		return m.IntrospectFn(token)
	}
	return &keycloak.Introspection{Active: false}, nil
}

func (m *MockTokenAPI) Revoke(ctx context.Context, refreshToken string) error {
	m.RevokeCalls = append(m.RevokeCalls, refreshToken)
	return m.RevokeErr
}

// GroupAssignment records one AddUserToGroup call.
type GroupAssignment struct {
	UserID  string
	GroupID string
}

// RoleAssignment records one AssignRealmRole call.
type RoleAssignment struct {
	UserID string
	Role   keycloak.Role
}

// MockAdminAPI is an in-memory stand-in for the admin surface. Users
// maps username to user id; CreateUser registers the new user under
// NextUserID so the follow-up lookup resolves it. Leaving NextUserID
// empty simulates the id-resolution failure window.
type MockAdminAPI struct {
	Users      map[string]string
	Groups     map[string]string
	Roles      map[string]string
	NextUserID string
	Sessions   []keycloak.Session

	LookupUserErr    error
	CreateUserErr    error
	ResetPasswordErr error
	AddToGroupErr    error
	AssignRoleErr    error
	SessionsErr      error

	// Tracked calls
	CreateUserCalls    []keycloak.NewUser
	ResetPasswordCalls []string
	GroupAssignments   []GroupAssignment
	RoleAssignments    []RoleAssignment
}

// NewMockAdminAPI creates a MockAdminAPI with empty realm state.
func NewMockAdminAPI() *MockAdminAPI {
	return &MockAdminAPI{
		Users:  make(map[string]string),
		Groups: make(map[string]string),
		Roles:  make(map[string]string),
	}
}

func (m *MockAdminAPI) LookupUserID(ctx context.Context, token, username string) (string, bool, error) {
	if m.LookupUserErr != nil {
		return "", false, m.LookupUserErr
	}
	id, ok := m.Users[username]
	return id, ok, nil
}

func (m *MockAdminAPI) CreateUser(ctx context.Context, token string, u keycloak.NewUser) error {
	m.CreateUserCalls = append(m.CreateUserCalls, u)
	if m.CreateUserErr != nil {
		return m.CreateUserErr
	}
	if m.NextUserID != "" {
		m.Users[u.Username] = m.NextUserID
	}
	return nil
}

func (m *MockAdminAPI) ResetPassword(ctx context.Context, token, userID string, cred keycloak.Credential) error {
	m.ResetPasswordCalls = append(m.ResetPasswordCalls, userID)
	return m.ResetPasswordErr
}

func (m *MockAdminAPI) LookupGroupID(ctx context.Context, token, name string) (string, bool, error) {
	id, ok := m.Groups[name]
	return id, ok, nil
}

func (m *MockAdminAPI) AddUserToGroup(ctx context.Context, token, userID, groupID string) error {
	if m.AddToGroupErr != nil {
		return m.AddToGroupErr
	}
	m.GroupAssignments = append(m.GroupAssignments, GroupAssignment{UserID: userID, GroupID: groupID})
	return nil
}

func (m *MockAdminAPI) LookupRealmRole(ctx context.Context, token, name string) (*keycloak.Role, error) {
	id, ok := m.Roles[name]
	if !ok {
		return nil, &keycloak.APIError{StatusCode: 404, Body: "role not found"}
	}
	return &keycloak.Role{ID: id, Name: name}, nil
}

func (m *MockAdminAPI) AssignRealmRole(ctx context.Context, token, userID string, role keycloak.Role) error {
	if m.AssignRoleErr != nil {
		return m.AssignRoleErr
	}
	m.RoleAssignments = append(m.RoleAssignments, RoleAssignment{UserID: userID, Role: role})
	return nil
}

func (m *MockAdminAPI) UserSessions(ctx context.Context, token, userID string) ([]keycloak.Session, error) {
	if m.SessionsErr != nil {
		return nil, m.SessionsErr
	}
	return m.Sessions, nil
}

// PublishedEvent records one Publish call.
type PublishedEvent struct {
	Key   string
	Event any
}

// MockPublisher is an in-memory event publisher. It is safe for
// concurrent use because the registrar publishes from a goroutine.
type MockPublisher struct {
	mu         sync.Mutex
	PublishErr error
	published  []PublishedEvent
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.published = append(m.published, PublishedEvent{Key: key, Event: event})
	return nil
}

// Published returns a snapshot of the events published so far.
func (m *MockPublisher) Published() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.published))
	copy(out, m.published)
	return out
}

// MockAuditStore is an in-memory history.Store.
type MockAuditStore struct {
	mu        sync.Mutex
	AppendErr error
	attempts  []history.LoginAttempt
	nextID    int64
}

func (m *MockAuditStore) Append(ctx context.Context, attempt history.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.nextID++
	attempt.ID = m.nextID
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *MockAuditStore) RecentByUsername(ctx context.Context, username string, limit int) ([]history.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []history.LoginAttempt
	for _, a := range m.attempts {
		if a.Username == username {
			matched = append(matched, a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Attempts returns a snapshot of everything appended so far.
func (m *MockAuditStore) Attempts() []history.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.LoginAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}
