package handlers

import (
	"net/http"

	"github.com/crucial707/todo-api/internal/middleware"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct{}

// Me returns the authenticated caller's public profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, "could not validate credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, user)
}
