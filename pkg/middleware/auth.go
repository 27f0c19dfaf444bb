package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/khaledm/eventide/pkg/response"
	"github.com/khaledm/eventide/pkg/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey ContextKey = "identity"
)

// RoleAdmin is the role value that unlocks admin-only routes.
const RoleAdmin = "admin"

// Auth validates the bearer token and stores the caller's identity in the
// request context. Requests without a valid token are rejected with 401.
func Auth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			// Expect "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			id, err := tokens.Parse(parts[1])
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose identity does not carry the admin role.
// Must be mounted after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			response.Unauthorized(w, "Authentication required")
			return
		}
		if id.Role != RoleAdmin {
			response.Forbidden(w, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity extracts the authenticated identity from the request context
func GetIdentity(ctx context.Context) (*token.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*token.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the given identity. Used by tests
// and internal callers that bypass the HTTP layer.
func WithIdentity(ctx context.Context, id *token.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
