package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crucial707/todo-api/internal/models"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/crucial707/todo-api/internal/token"
)

type ctxKey string

const userKey ctxKey = "current_user"

// GetUser returns the authenticated user placed in the context by RequireUser.
func GetUser(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

// WithUser returns a context carrying the given user, as RequireUser would
// produce for a verified request.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequireUser extracts the bearer token, verifies it, and resolves the subject
// to a user. Every failure mode (missing header, bad token, unknown subject)
// produces the same 401 so callers cannot probe which accounts exist.
func RequireUser(tokens *token.Service, users *repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w)
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			username, err := tokens.Verify(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByUsername(r.Context(), username)
			if err != nil {
				// Covers users deleted after token issuance as well.
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "could not validate credentials"})
}
