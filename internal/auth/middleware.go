package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var userIDKey contextKey

// UserID returns the authenticated user id stored by Middleware, or "" when
// the request was not authenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID injects a user id into the context; exported for tests.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// Middleware rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func Middleware(m *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractBearer(r)
			if err != nil {
				http.Error(w, "Not authenticated", http.StatusUnauthorized)
				return
			}
			userID, err := m.Parse(raw)
			if err != nil {
				http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingBearer
	}
	return parts[1], nil
}
