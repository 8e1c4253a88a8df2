package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/todo-api/internal/metrics"
	"github.com/crucial707/todo-api/internal/middleware"
	"github.com/crucial707/todo-api/internal/models"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// MaxListLimit caps the list page size. The skip/limit defaults mirror the
// query parameters of the public API (skip=0, limit=100).
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// ==========================
// TodoHandler
// ==========================
// All operations run against the caller resolved by the auth middleware; the
// repo binds owner_id on every query, so nothing here can cross user boundaries.
type TodoHandler struct {
	Repo *repo.TodoRepo

	validate *validator.Validate
}

func NewTodoHandler(todos *repo.TodoRepo) *TodoHandler {
	return &TodoHandler{
		Repo:     todos,
		validate: validator.New(),
	}
}

// ==========================
// Create Todo
// ==========================
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, "could not validate credentials", http.StatusUnauthorized)
		return
	}

	var input struct {
		Title       string `json:"title" validate:"required,max=255"`
		Description string `json:"description" validate:"max=1000"`
		Completed   bool   `json:"completed"`
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

	todo, err := h.Repo.Create(r.Context(), input.Title, input.Description, input.Completed, user.ID)
	if err != nil {
		slog.Error("create todo", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	metrics.TodosCreatedTotal.Inc()
	writeJSON(w, todo)
}

// ==========================
// List Todos
// ==========================
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, "could not validate credentials", http.StatusUnauthorized)
		return
	}

	skip := 0
	limit := DefaultListLimit

	if s := r.URL.Query().Get("skip"); s != "" {
		if val, err := strconv.Atoi(s); err == nil && val >= 0 {
			skip = val
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	todos, err := h.Repo.ListByOwner(r.Context(), user.ID, skip, limit)
	if err != nil {
		slog.Error("list todos", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, todos)
}

// ==========================
// Get Todo
// ==========================
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	todo, err := h.Repo.GetByID(r.Context(), id, user.ID)
	if err != nil {
		h.todoError(w, err)
		return
	}

	writeJSON(w, todo)
}

// ==========================
// Update Todo (partial)
// ==========================
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var patch models.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	todo, err := h.Repo.Update(r.Context(), id, user.ID, patch)
	if err != nil {
		h.todoError(w, err)
		return
	}

	writeJSON(w, todo)
}

// ==========================
// Delete Todo
// ==========================
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.Repo.Delete(r.Context(), id, user.ID); err != nil {
		h.todoError(w, err)
		return
	}

	writeJSON(w, map[string]bool{"ok": true})
}

// callerAndID pulls the authenticated user and the {id} URL param.
// Writes the error response itself when either is missing.
func (h *TodoHandler) callerAndID(w http.ResponseWriter, r *http.Request) (*models.User, int, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, "could not validate credentials", http.StatusUnauthorized)
		return nil, 0, false
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid todo id", http.StatusBadRequest)
		return nil, 0, false
	}

	return user, id, true
}

// todoError maps repo errors: missing and not-owned rows are the same 404.
func (h *TodoHandler) todoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "todo not found", http.StatusNotFound)
		return
	}
	slog.Error("todo storage", "error", err)
	JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
}
