// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ActorKey is the context key for the authenticated caller.
	ActorKey ContextKey = "actor"
	// ScopesKey is the context key for JWT scopes.
	ScopesKey ContextKey = "scopes"

	// AdminAPIKeyHeader carries the shared admin secret.
	AdminAPIKeyHeader = "X-Admin-API-Key"

	// AdminScope is the JWT scope granting access to the admin surface.
	AdminScope = "powerlunch:admin"

	// NetworkingScope is the JWT scope granting access to networking suggestions.
	NetworkingScope = "powerlunch:networking"

	// apiKeyActor identifies callers authenticated by the shared secret.
	apiKeyActor = "admin-api-key"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scope"`
}

// AdminAuth accepts a request that presents the shared admin key in
// X-Admin-API-Key, or an HMAC-signed bearer token carrying AdminScope.
// Everything else is rejected with 401 before reaching the handler. An empty
// adminKey disables the header credential; an empty jwtSecret disables tokens.
func AdminAuth(adminKey, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(AdminAPIKeyHeader); key != "" && adminKey != "" {
				if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
					ctx := context.WithValue(r.Context(), ActorKey, apiKeyActor)
					ctx = context.WithValue(ctx, ScopesKey, []string{AdminScope})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				unauthorized(w)
				return
			}

			claims, ok := bearerClaims(r, jwtSecret)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, claims.Subject)
			ctx = context.WithValue(ctx, ScopesKey, claims.Scopes)
			if !HasScope(ctx, AdminScope) {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerAuth accepts a request whose HMAC-signed bearer token carries at least
// one of scopes, and rejects everything else with 401.
func BearerAuth(jwtSecret string, scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(r, jwtSecret)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, claims.Subject)
			ctx = context.WithValue(ctx, ScopesKey, claims.Scopes)
			for _, scope := range scopes {
				if HasScope(ctx, scope) {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			unauthorized(w)
		})
	}
}

func bearerClaims(r *http.Request, jwtSecret string) (*Claims, bool) {
	if jwtSecret == "" {
		return nil, false
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthorized"}`))
}

// GetActor gets the authenticated caller from context.
func GetActor(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey).(string); ok {
		return v
	}
	return ""
}

// GetScopes gets scopes from context.
func GetScopes(ctx context.Context) []string {
	if v, ok := ctx.Value(ScopesKey).([]string); ok {
		return v
	}
	return nil
}

// HasScope checks if the context has a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	for _, s := range GetScopes(ctx) {
		if s == scope {
			return true
		}
	}
	return false
}
