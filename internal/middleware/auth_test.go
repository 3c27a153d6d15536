package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "admin-secret"
	testSecret = "jwt-secret"
)

func signToken(t *testing.T, secret string, scopes []string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Scopes: scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAdminAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		apiKey    string
		bearer    string
		wantCode  int
		wantActor string
	}{
		{name: "api key", apiKey: testKey, wantCode: http.StatusOK, wantActor: "admin-api-key"},
		{name: "wrong api key", apiKey: "nope", wantCode: http.StatusUnauthorized},
		{name: "no credential", wantCode: http.StatusUnauthorized},
		{
			name:      "scoped token",
			bearer:    signToken(t, testSecret, []string{AdminScope}, future),
			wantCode:  http.StatusOK,
			wantActor: "ops@example.com",
		},
		{
			name:     "token without scope",
			bearer:   signToken(t, testSecret, []string{"powerlunch:read"}, future),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "token with wrong secret",
			bearer:   signToken(t, "other", []string{AdminScope}, future),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired token",
			bearer:   signToken(t, testSecret, []string{AdminScope}, time.Now().Add(-time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor string
			h := AdminAuth(testKey, testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor = GetActor(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/match-lunches", nil)
			if tt.apiKey != "" {
				req.Header.Set(AdminAPIKeyHeader, tt.apiKey)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantActor, actor)
			if tt.wantCode == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestAdminAuth_UnconfiguredKeyRejects(t *testing.T) {
	h := AdminAuth("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/match-lunches", nil)
	req.Header.Set(AdminAPIKeyHeader, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		secret    string
		bearer    string
		apiKey    string
		wantCode  int
		wantActor string
	}{
		{
			name:      "networking scope",
			secret:    testSecret,
			bearer:    signToken(t, testSecret, []string{NetworkingScope}, future),
			wantCode:  http.StatusOK,
			wantActor: "ops@example.com",
		},
		{
			name:      "admin scope",
			secret:    testSecret,
			bearer:    signToken(t, testSecret, []string{AdminScope}, future),
			wantCode:  http.StatusOK,
			wantActor: "ops@example.com",
		},
		{
			name:     "unrelated scope",
			secret:   testSecret,
			bearer:   signToken(t, testSecret, []string{"powerlunch:read"}, future),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "admin key is not a bearer token",
			secret:   testSecret,
			apiKey:   testKey,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "tokens disabled",
			bearer:   signToken(t, testSecret, []string{NetworkingScope}, future),
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor string
			h := BearerAuth(tt.secret, NetworkingScope, AdminScope)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor = GetActor(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/ai/suggest-networking", nil)
			if tt.apiKey != "" {
				req.Header.Set(AdminAPIKeyHeader, tt.apiKey)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantActor, actor)
		})
	}
}
