package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/contentnexus/iam-service/internal/history"
	"github.com/contentnexus/iam-service/internal/keycloak"
)

// historyLimit caps the login-history query at the five most recent
// attempts per username.
const historyLimit = 5

// LoginResult carries the raw token payload on success plus any
// advisory warnings (currently only the audit-write alarm).
type LoginResult struct {
	Tokens   *keycloak.TokenSet
	Warnings []string
}

// LogoutReport lists the advisory findings of the post-logout
// verification checks. It never affects the logout outcome.
type LogoutReport struct {
	Warnings []string
}

// SessionManager drives login, logout and the post-logout verification
// protocol, recording every login attempt in the audit store.
type SessionManager struct {
	tokens TokenAPI
	admin  AdminAPI
	audit  history.Store
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(tokens TokenAPI, admin AdminAPI, audit history.Store) *SessionManager {
	return &SessionManager{tokens: tokens, admin: admin, audit: audit}
}

// Login exchanges the credentials via the password grant. Exactly one
// audit record is written per call, success and failure alike, before
// the result is returned. An audit-write failure is escalated as an
// operational alarm but never masks the login outcome.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	tokens, loginErr := m.tokens.PasswordGrant(ctx, username, password)

	attempt := history.LoginAttempt{
		Username:  username,
		Timestamp: time.Now(),
	}
	if loginErr == nil {
		attempt.Status = history.StatusSuccess
		attempt.Message = "Login successful"
	} else {
		attempt.Status = history.StatusFailure
		attempt.Message = loginErr.Error()
	}

	var warnings []string
	if err := m.audit.Append(ctx, attempt); err != nil {
		log.Printf("[ALARM] login audit write failed for %q: %v", username, err)
		warnings = append(warnings, fmt.Sprintf("audit write failed: %v", err))
	}

	if loginErr != nil {
		return nil, classifyLogin(loginErr)
	}
	return &LoginResult{Tokens: tokens, Warnings: warnings}, nil
}

// Logout revokes the refresh token after confirming it is still
// active, then runs three advisory post-condition checks: both tokens
// should introspect as inactive and the user should have no remaining
// sessions. The checks are consistency signals for operators, not
// correctness gates.
func (m *SessionManager) Logout(ctx context.Context, refreshToken, accessToken, userID string) (*LogoutReport, error) {
	in, err := m.tokens.Introspect(ctx, refreshToken)
	if err != nil || !in.Active {
		// A token we cannot prove alive is treated as dead: no revoke
		// call is issued for it.
		return nil, ErrInvalidToken
	}

	if err := m.tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, classifyUpstream(err)
	}
	log.Printf("[Sessions] user %s logged out", userID)

	report := &LogoutReport{}
	m.verifyInactive(ctx, refreshToken, "refresh token", report)
	m.verifyInactive(ctx, accessToken, "access token", report)
	m.verifyNoSessions(ctx, userID, report)

	return report, nil
}

// LoginHistory returns up to the five most recent login attempts for
// the user, newest first.
func (m *SessionManager) LoginHistory(ctx context.Context, username string) ([]history.LoginAttempt, error) {
	return m.audit.RecentByUsername(ctx, username, historyLimit)
}

func (m *SessionManager) verifyInactive(ctx context.Context, token, label string, report *LogoutReport) {
	in, err := m.tokens.Introspect(ctx, token)
	if err != nil {
		m.warn(report, "could not verify %s after logout: %v", label, err)
		return
	}
	if in.Active {
		m.warn(report, "%s still active after logout", label)
		return
	}
	log.Printf("[Sessions] %s invalidated after logout", label)
}

func (m *SessionManager) verifyNoSessions(ctx context.Context, userID string, report *LogoutReport) {
	token, err := m.tokens.ServiceAccountToken(ctx)
	if err != nil {
		m.warn(report, "could not check sessions after logout: %v", err)
		return
	}
	sessions, err := m.admin.UserSessions(ctx, token, userID)
	if err != nil {
		m.warn(report, "could not check sessions after logout: %v", err)
		return
	}
	if len(sessions) > 0 {
		m.warn(report, "user still has %d active session(s) after logout", len(sessions))
		return
	}
	log.Printf("[Sessions] no active sessions remain for user %s", userID)
}

func (m *SessionManager) warn(report *LogoutReport, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	report.Warnings = append(report.Warnings, msg)
	log.Printf("[Sessions] %s", msg)
}

// classifyLogin maps a password-grant failure into the error taxonomy:
// 401 means rejected credentials, other upstream statuses pass through
// unchanged, everything else is a transport failure.
func classifyLogin(err error) error {
	var apiErr *keycloak.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Body)
		}
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
