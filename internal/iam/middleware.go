package iam

import (
	"context"
	"net/http"
	"strings"

	"github.com/medicloud/portal/pkg/types"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the session attached to the request context
func SessionFromContext(ctx context.Context) (*types.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*types.Session)
	return session, ok
}

// WithSession attaches a session to a context. Exported for handler tests.
func WithSession(ctx context.Context, session *types.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// Middleware validates the bearer token and attaches the rebuilt session to
// the request context. Sessions live only in the token and this per-request
// context; there is no process-wide session state.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeUnauthorized(w)
			return
		}

		session, err := s.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Missing or invalid session token"}}`))
}
