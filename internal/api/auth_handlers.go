package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/contentnexus/iam-service/internal/api/middleware"
	"github.com/contentnexus/iam-service/internal/history"
	"github.com/contentnexus/iam-service/internal/identity"
	"github.com/contentnexus/iam-service/internal/keycloak"
)

// RegistrationService is the registration boundary the handlers call.
type RegistrationService interface {
	Register(ctx context.Context, reg identity.Registration) (*identity.RegistrationResult, error)
}

// SessionService is the session-lifecycle boundary the handlers call.
type SessionService interface {
	Login(ctx context.Context, username, password string) (*identity.LoginResult, error)
	Logout(ctx context.Context, refreshToken, accessToken, userID string) (*identity.LogoutReport, error)
	LoginHistory(ctx context.Context, username string) ([]history.LoginAttempt, error)
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	registrar RegistrationService
	sessions  SessionService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(registrar RegistrationService, sessions SessionService) *AuthHandlers {
	return &AuthHandlers{registrar: registrar, sessions: sessions}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// RegisterResponse represents the registration response body
type RegisterResponse struct {
	UserID   string   `json:"user_id"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondJSONError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.registrar.Register(r.Context(), identity.Registration{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			respondJSONError(w, "User already exists", http.StatusConflict)
			return
		}
		respondJSONError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		UserID:   result.UserID,
		Message:  "Registration successful",
		Warnings: result.Warnings,
	})
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondJSONError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		respondJSONError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, result.Tokens)
}

// Logout handles user logout. Tokens travel in headers, matching the
// upstream contract: Authorization carries the access token,
// Refresh-Token the refresh token and User-Id the subject.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	refreshToken := r.Header.Get("Refresh-Token")
	userID := r.Header.Get("User-Id")

	if refreshToken == "" || userID == "" {
		respondJSONError(w, "Refresh-Token and User-Id headers are required", http.StatusBadRequest)
		return
	}

	report, err := h.sessions.Logout(r.Context(), refreshToken, accessToken, userID)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			respondJSONError(w, "Invalid refresh token. Please log in again.", http.StatusUnauthorized)
			return
		}
		respondJSONError(w, err.Error(), statusFromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Logout successful",
		"warnings": report.Warnings,
	})
}

// LoginHistory returns the last 5 login attempts for a username.
func (h *AuthHandlers) LoginHistory(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimPrefix(r.URL.Path, "/auth/login-history/")
	if username == "" {
		respondJSONError(w, "Username is required", http.StatusBadRequest)
		return
	}

	attempts, err := h.sessions.LoginHistory(r.Context(), username)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(attempts) == 0 {
		respondJSONError(w, "No login history found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, attempts)
}

// UserInfo returns the authenticated caller's identity and realm roles.
func (h *AuthHandlers) UserInfo(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, principal)
}

// statusFromError maps orchestrator failures onto HTTP statuses,
// passing upstream statuses through unchanged where the taxonomy
// allows.
func statusFromError(err error) int {
	var apiErr *keycloak.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, identity.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
