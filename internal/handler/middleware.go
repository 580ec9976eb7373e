package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/anditama/go-shop-backend/internal/domain/user"
)

type contextKey struct{ name string }

var userKey = &contextKey{"user"}

// RequireAuth authenticates the bearer token and stores the resolved user
// in the request context. Requests without a valid token get 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "missing bearer token"})
			return
		}
		u, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, envelope{Message: "invalid or expired token"})
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func userFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userKey).(*user.User)
	return u
}
