package httpserver

import (
	"context"
	"net/http"
	"strings"

	"kocmoc/internal/domain"
	"kocmoc/internal/service"
)

type contextKey string

const (
	userContextKey  contextKey = "currentUser"
	tokenContextKey contextKey = "bearerToken"
)

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// CurrentToken extracts the raw bearer token the request authenticated with.
func CurrentToken(r *http.Request) string {
	if v := r.Context().Value(tokenContextKey); v != nil {
		if t, ok := v.(string); ok {
			return t
		}
	}
	return ""
}

// AuthMiddleware validates the Bearer token against the session store and
// attaches the user to the context. Each rejection reason (expired,
// malformed, revoked, unknown user) surfaces distinctly to the client.
func AuthMiddleware(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeError(w, r, domain.ErrTokenMalformed)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			user, err := sessions.Validate(r.Context(), tokenStr)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, tokenContextKey, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
