package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentnexus/iam-service/internal/history"
	"github.com/contentnexus/iam-service/internal/identity"
	"github.com/contentnexus/iam-service/internal/keycloak"
)

type fakeRegistrar struct {
	result *identity.RegistrationResult
	err    error
	calls  []identity.Registration
}

func (f *fakeRegistrar) Register(ctx context.Context, reg identity.Registration) (*identity.RegistrationResult, error) {
	f.calls = append(f.calls, reg)
	return f.result, f.err
}

type fakeSessions struct {
	loginResult  *identity.LoginResult
	loginErr     error
	logoutReport *identity.LogoutReport
	logoutErr    error
	attempts     []history.LoginAttempt
	historyErr   error

	logoutCalls [][3]string
}

func (f *fakeSessions) Login(ctx context.Context, username, password string) (*identity.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeSessions) Logout(ctx context.Context, refreshToken, accessToken, userID string) (*identity.LogoutReport, error) {
	f.logoutCalls = append(f.logoutCalls, [3]string{refreshToken, accessToken, userID})
	return f.logoutReport, f.logoutErr
}

func (f *fakeSessions) LoginHistory(ctx context.Context, username string) ([]history.LoginAttempt, error) {
	return f.attempts, f.historyErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandlers_Register_Created(t *testing.T) {
	registrar := &fakeRegistrar{result: &identity.RegistrationResult{UserID: "user-1"}}
	h := NewAuthHandlers(registrar, &fakeSessions{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     "editor",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp RegisterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "user-1", resp.UserID)

	require.Len(t, registrar.calls, 1)
	assert.Equal(t, "alice", registrar.calls[0].Username)
	assert.Equal(t, "editor", registrar.calls[0].Role)
}

func TestAuthHandlers_Register_Conflict(t *testing.T) {
	registrar := &fakeRegistrar{err: identity.ErrUserExists}
	h := NewAuthHandlers(registrar, &fakeSessions{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{Username: "alice", Password: "pw"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlers_Register_MissingFields(t *testing.T) {
	registrar := &fakeRegistrar{}
	h := NewAuthHandlers(registrar, &fakeSessions{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{Username: "alice"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, registrar.calls)
}

func TestAuthHandlers_Register_UpstreamUnavailable(t *testing.T) {
	registrar := &fakeRegistrar{err: identity.ErrUpstream}
	h := NewAuthHandlers(registrar, &fakeSessions{})

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{Username: "alice", Password: "pw"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	sessions := &fakeSessions{loginResult: &identity.LoginResult{
		Tokens: &keycloak.TokenSet{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"},
	}}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Username: "alice", Password: "secret123"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var ts keycloak.TokenSet
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ts))
	assert.Equal(t, "at", ts.AccessToken)
	assert.Equal(t, "rt", ts.RefreshToken)
}

func TestAuthHandlers_Login_InvalidCredentials(t *testing.T) {
	sessions := &fakeSessions{loginErr: identity.ErrInvalidCredentials}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Username: "alice", Password: "wrongpw"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlers_Login_UpstreamStatusPassesThrough(t *testing.T) {
	sessions := &fakeSessions{loginErr: &keycloak.APIError{StatusCode: 503, Body: "maintenance"}}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Username: "alice", Password: "pw"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthHandlers_Logout_Success(t *testing.T) {
	sessions := &fakeSessions{logoutReport: &identity.LogoutReport{}}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer at")
	req.Header.Set("Refresh-Token", "rt")
	req.Header.Set("User-Id", "user-1")
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sessions.logoutCalls, 1)
	assert.Equal(t, [3]string{"rt", "at", "user-1"}, sessions.logoutCalls[0])
}

func TestAuthHandlers_Logout_InvalidToken(t *testing.T) {
	sessions := &fakeSessions{logoutErr: identity.ErrInvalidToken}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Refresh-Token", "dead-rt")
	req.Header.Set("User-Id", "user-1")
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlers_Logout_MissingHeaders(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sessions.logoutCalls)
}

func TestAuthHandlers_LoginHistory_Found(t *testing.T) {
	now := time.Now()
	sessions := &fakeSessions{attempts: []history.LoginAttempt{
		{ID: 2, Username: "alice", Timestamp: now, Status: history.StatusSuccess, Message: "Login successful"},
		{ID: 1, Username: "alice", Timestamp: now.Add(-time.Minute), Status: history.StatusFailure, Message: "bad password"},
	}}
	h := NewAuthHandlers(&fakeRegistrar{}, sessions)

	req := httptest.NewRequest(http.MethodGet, "/auth/login-history/alice", nil)
	rec := httptest.NewRecorder()

	h.LoginHistory(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var attempts []history.LoginAttempt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&attempts))
	require.Len(t, attempts, 2)
	assert.Equal(t, history.StatusSuccess, attempts[0].Status)
}

func TestAuthHandlers_LoginHistory_Empty(t *testing.T) {
	h := NewAuthHandlers(&fakeRegistrar{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login-history/nobody", nil)
	rec := httptest.NewRecorder()

	h.LoginHistory(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
