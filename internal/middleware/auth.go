package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dating-backend/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenParser validates an access token and returns its claims
type TokenParser interface {
	ParseToken(token string) (auth.Claims, error)
}

// Authenticate creates a middleware for JWT authentication
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := parser.ParseToken(parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims on the context
func WithClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts the authenticated claims
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	return claims, ok
}

// GetUserID extracts the authenticated account ID from context
func GetUserID(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}

// RequireRoles rejects callers holding none of roles. It must run after
// Authenticate.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respondError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if err := auth.RequireRoles(claims, roles...); err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					respondError(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				respondError(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
