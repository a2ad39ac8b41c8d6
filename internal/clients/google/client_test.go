package google_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/clients/google"
	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/pkg/config"
)

func newTestConfig(baseURL string, timeout time.Duration) config.GoogleConfig {
	return config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://nightgig.test/api/auth/google/callback",
		AuthURL:      baseURL + "/auth",
		TokenURL:     baseURL + "/token",
		UserInfoURL:  baseURL + "/userinfo",
		Scope:        "openid email profile",
		Timeout:      timeout,
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := google.NewClient(newTestConfig("https://accounts.example.com", time.Second))

	u, err := url.Parse(client.AuthCodeURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "/auth", u.Path)
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "openid email profile", q.Get("scope"))
}

func TestClient_ExchangeCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		expectError error
	}{
		{
			name:   "successful exchange",
			status: http.StatusOK,
			body:   `{"access_token":"ya29.token","token_type":"Bearer","expires_in":3599,"scope":"openid email"}`,
		},
		{
			name:        "invalid grant",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant","error_description":"Bad Request"}`,
			expectError: entity.ErrOAuthInvalidCode,
		},
		{
			name:        "misconfigured client",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_client","error_description":"The OAuth client was not found."}`,
			expectError: entity.ErrOAuthServiceUnavailable,
		},
		{
			name:        "provider outage",
			status:      http.StatusServiceUnavailable,
			body:        `<html>unavailable</html>`,
			expectError: entity.ErrOAuthServiceUnavailable,
		},
		{
			name:        "empty access token",
			status:      http.StatusOK,
			body:        `{"token_type":"Bearer"}`,
			expectError: entity.ErrOAuthInvalidCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/token" || r.Method != http.MethodPost {
					w.WriteHeader(http.StatusNotFound)
					return
				}

				if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
					w.WriteHeader(http.StatusUnsupportedMediaType)
					return
				}

				_ = r.ParseForm()
				if r.PostForm.Get("code") == "" || r.PostForm.Get("client_secret") != "client-secret" {
					w.WriteHeader(http.StatusTeapot)
					return
				}

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := google.NewClient(newTestConfig(server.URL, 5*time.Second))

			tokens, err := client.ExchangeCode(context.Background(), "auth-code")
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}

			require.NoError(t, err)
			require.Equal(t, "ya29.token", tokens.AccessToken)
			require.Equal(t, 3599, tokens.ExpiresIn)
		})
	}
}

func TestClient_VerifyAccessToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		expectError error
		expectEmail string
	}{
		{
			name:        "verified identity",
			status:      http.StatusOK,
			body:        `{"sub":"1122","email":"DJ.Nova@Example.com","email_verified":true,"name":" Nova "}`,
			expectEmail: "dj.nova@example.com",
		},
		{
			name:        "rejected token",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_token","error_description":"Invalid Credentials"}`,
			expectError: entity.ErrOAuthInvalidToken,
		},
		{
			name:        "missing subject",
			status:      http.StatusOK,
			body:        `{"email":"x@example.com"}`,
			expectError: entity.ErrOAuthInvalidToken,
		},
		{
			name:        "garbage body",
			status:      http.StatusOK,
			body:        `not json`,
			expectError: entity.ErrOAuthServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer ya29.token" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := google.NewClient(newTestConfig(server.URL, 5*time.Second))

			identity, err := client.VerifyAccessToken(context.Background(), "ya29.token")
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expectEmail, identity.Email)
			require.Equal(t, "1122", identity.Subject)
			require.Equal(t, "Nova", identity.Name)
			require.True(t, identity.EmailVerified)
			require.Equal(t, entity.LoginProviderGoogle, identity.Provider)
		})
	}
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := google.NewClient(newTestConfig(server.URL, 50*time.Millisecond))

	_, err := client.VerifyAccessToken(context.Background(), "ya29.token")
	require.ErrorIs(t, err, entity.ErrOAuthServiceUnavailable)
	require.True(t, google.IsUnavailable(err))
}
