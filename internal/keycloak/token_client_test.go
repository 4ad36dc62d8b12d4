package keycloak

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Realm:        "contentnexus",
		ClientID:     "iam-service",
		ClientSecret: "s3cr3t",
	}
}

func TestTokenClient_ServiceAccountToken_FreshPerCall(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realms/contentnexus/protocol/openid-connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "iam-service", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cr3t", r.PostForm.Get("client_secret"))

		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"admin-token","token_type":"Bearer","expires_in":300}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)

	for i := 0; i < 2; i++ {
		token, err := client.ServiceAccountToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "admin-token", token)
	}

	// No caching: every call hits the token endpoint again.
	assert.Equal(t, 2, tokenCalls)
}

func TestTokenClient_PasswordGrant_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "secret123", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at",
			"expires_in": 300,
			"refresh_expires_in": 1800,
			"refresh_token": "rt",
			"token_type": "Bearer",
			"session_state": "sess-1",
			"scope": "profile email"
		}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	ts, err := client.PasswordGrant(context.Background(), "alice", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "at", ts.AccessToken)
	assert.Equal(t, "rt", ts.RefreshToken)
	assert.Equal(t, 300, ts.ExpiresIn)
	assert.Equal(t, "Bearer", ts.TokenType)
}

func TestTokenClient_PasswordGrant_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	_, err := client.PasswordGrant(context.Background(), "alice", "wrongpw")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid_grant")
}

func TestTokenClient_Introspect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realms/contentnexus/protocol/openid-connect/token/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "some-token", r.PostForm.Get("token"))
		assert.Equal(t, "iam-service", r.PostForm.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active":true,"username":"alice","sub":"user-1"}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	in, err := client.Introspect(context.Background(), "some-token")

	require.NoError(t, err)
	assert.True(t, in.Active)
	assert.Equal(t, "alice", in.Username)
	assert.Equal(t, "user-1", in.Subject)
}

func TestTokenClient_Introspect_InactiveToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active":false}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	in, err := client.Introspect(context.Background(), "dead-token")

	require.NoError(t, err)
	assert.False(t, in.Active)
}

func TestTokenClient_Revoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realms/contentnexus/protocol/openid-connect/logout", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	assert.NoError(t, client.Revoke(context.Background(), "rt"))
}

func TestTokenClient_Revoke_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := NewTokenClient(testConfig(server.URL), nil)
	err := client.Revoke(context.Background(), "rt")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestTokenClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewTokenClient(testConfig(server.URL), nil)
	_, err := client.PasswordGrant(context.Background(), "alice", "secret123")

	require.Error(t, err)
	// Transport failures are not APIErrors; no upstream status exists.
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
