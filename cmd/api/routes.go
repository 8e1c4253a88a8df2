package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/todo-api/internal/config"
	"github.com/crucial707/todo-api/internal/handlers"
	"github.com/crucial707/todo-api/internal/mailer"
	"github.com/crucial707/todo-api/internal/middleware"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/crucial707/todo-api/internal/token"
)

// newRouter wires repos, the token service, and all middleware into the chi
// router. Kept separate from main so integration tests can build the full
// stack against a mock DB.
func newRouter(db *sql.DB, cfg config.Config) http.Handler {
	userRepo := repo.NewUserRepo(db)
	todoRepo := repo.NewTodoRepo(db)

	tokens := token.NewService([]byte(cfg.JWTSecret), time.Duration(cfg.JWTExpireMinutes)*time.Minute)
	m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, m)
	userHandler := &handlers.UserHandler{}
	todoHandler := handlers.NewTodoHandler(todoRepo)

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(useTLS))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to Todo App"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			handlers.JSONError(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	authLimiter := middleware.AuthRateLimiter(cfg.AuthRatePerMinute)
	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/signup", authHandler.Signup)
		r.Post("/token", authHandler.Token)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(tokens, userRepo))

		r.Get("/users/me", userHandler.Me)

		r.Route("/todos", func(r chi.Router) {
			r.Post("/", todoHandler.CreateTodo)
			r.Get("/", todoHandler.ListTodos)
			r.Get("/{id}", todoHandler.GetTodo)
			r.Patch("/{id}", todoHandler.UpdateTodo)
			r.Delete("/{id}", todoHandler.DeleteTodo)
		})
	})

	return r
}
