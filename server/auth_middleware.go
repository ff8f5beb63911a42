package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/token"
	"github.com/jrsteele09/go-tenant-admin/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the validated token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyActor stores the user behind the claims
	ContextKeyActor ContextKey = "actor"
)

// bearerToken extracts the session token from the Authorization header,
// falling back to the token cookie the dashboard keeps
func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth is middleware that validates the session token and injects its claims
func (s *Server) RequireAuth() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, r, apperrors.ErrMissingToken)
				return
			}
			claims, err := s.auth.Authenticate(raw)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequirePermission loads the caller and checks the role table for perm.
// Should be chained after RequireAuth to ensure claims are present.
func (s *Server) RequirePermission(perm users.Permission) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFrom(r.Context())
			if !ok {
				writeError(w, r, apperrors.ErrMissingToken)
				return
			}
			actor, err := s.auth.Actor(r.Context(), claims.Subject)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !actor.Can(perm) {
				writeError(w, r, apperrors.ErrForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyActor, actor)
			next(w, r.WithContext(ctx))
		}
	}
}

func claimsFrom(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func actorFrom(ctx context.Context) *users.User {
	actor, _ := ctx.Value(ContextKeyActor).(*users.User)
	return actor
}
