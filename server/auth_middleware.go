package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the principal decoded from a verified
// access token. Lifetime is one request.
const ContextKeyPrincipal ContextKey = "principal"

// PrincipalFromContext returns the principal attached by RequireAuth.
func PrincipalFromContext(ctx context.Context) (token.Principal, bool) {
	principal, ok := ctx.Value(ContextKeyPrincipal).(token.Principal)
	return principal, ok
}

// RequireAuth is middleware that validates a Bearer access token on
// protected routes. A missing or malformed header is rejected before
// any verification work; a present but invalid or expired token is a
// 403. The middleware holds no state, so it is safe under unbounded
// concurrent invocations.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}

			principal, err := s.verifier.VerifyAccess(raw)
			if err != nil {
				writeError(w, http.StatusForbidden, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}
