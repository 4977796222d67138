package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jthurman/localhive/internal/models"
	httputil "github.com/jthurman/localhive/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
)

// RequireSession validates the session token and injects claims into context.
// Requests without a valid session are rejected with 401.
func RequireSession(sm *SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractSessionToken(r)
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			claims, err := sm.Verify(tokenString)
			if err != nil {
				httputil.WriteUnauthorized(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession injects claims into context when a valid session is present
// and passes the request through anonymously otherwise. A malformed or expired
// token is treated the same as no token.
func OptionalSession(sm *SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractSessionToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := sm.Verify(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractSessionToken locates the session token for a request.
// The Authorization header takes precedence over the session cookie.
func extractSessionToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		// A present but malformed header is not silently ignored
		return "", false
	}

	token, err := GetSessionCookie(r)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// GetUserFromContext extracts session claims from request context
func GetUserFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
