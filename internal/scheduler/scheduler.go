package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/crucial707/todo-api/internal/metrics"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/robfig/cron/v3"
)

// Run starts a background cron that refreshes the users_total and todos_total
// gauges every minute. It returns the cron so the caller can Stop it.
func Run(users *repo.UserRepo, todos *repo.TodoRepo) *cron.Cron {
	c := cron.New()

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if n, err := users.Count(ctx); err != nil {
			slog.Error("scheduler: count users", "error", err)
		} else {
			metrics.UsersTotal.Set(float64(n))
		}

		if n, err := todos.Count(ctx); err != nil {
			slog.Error("scheduler: count todos", "error", err)
		} else {
			metrics.TodosTotal.Set(float64(n))
		}
	}

	if _, err := c.AddFunc("@every 1m", refresh); err != nil {
		slog.Error("scheduler: add refresh job", "error", err)
		return c
	}

	// Initial sample so gauges are populated before the first tick.
	refresh()
	c.Start()
	return c
}
