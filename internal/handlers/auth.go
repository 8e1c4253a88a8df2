package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/todo-api/internal/mailer"
	"github.com/crucial707/todo-api/internal/metrics"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/crucial707/todo-api/internal/token"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Tokens   *token.Service
	Mailer   *mailer.Mailer

	validate *validator.Validate
}

func NewAuthHandler(users *repo.UserRepo, tokens *token.Service, m *mailer.Mailer) *AuthHandler {
	return &AuthHandler{
		UserRepo: users,
		Tokens:   tokens,
		Mailer:   m,
		validate: validator.New(),
	}
}

// ==========================
// Signup (password stored as bcrypt hash; hash never serialized)
// ==========================
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Email    string `json:"email" validate:"required,email"`
		FullName string `json:"full_name" validate:"max=255"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(input); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	// Fast path for a friendly message. The unique constraint below is the
	// authoritative duplicate check; concurrent signups race past this lookup.
	if _, err := h.UserRepo.GetByUsername(r.Context(), input.Username); err == nil {
		JSONError(w, "username already registered", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("signup: hash password", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user, err := h.UserRepo.Create(r.Context(), input.Username, input.Email, input.FullName, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateUsername):
			JSONError(w, "username already registered", http.StatusBadRequest)
		case errors.Is(err, repo.ErrDuplicateEmail):
			JSONError(w, "email already registered", http.StatusBadRequest)
		default:
			slog.Error("signup: create user", "error", err)
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		}
		return
	}

	metrics.SignupsTotal.Inc()
	h.Mailer.SendWelcomeAsync(user.Email, user.Username)

	writeJSON(w, user)
}

// ==========================
// Token (login; form-encoded, OAuth2 password flow shape)
// ==========================
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		JSONError(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.UserRepo.GetByUsername(r.Context(), username)
	if err != nil {
		// Same response for unknown username and wrong password.
		h.loginFailed(w)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		h.loginFailed(w)
		return
	}

	signed, err := h.Tokens.Issue(user.Username)
	if err != nil {
		slog.Error("login: issue token", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"access_token": signed,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	JSONError(w, "incorrect username or password", http.StatusUnauthorized)
}
