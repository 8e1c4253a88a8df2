package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/todo-api/internal/models"
)

// ==========================
// TodoRepo
// ==========================
// Every query binds owner_id, so the ownership filter cannot be skipped by a
// caller. A todo owned by someone else is indistinguishable from a missing one.
type TodoRepo struct {
	DB *sql.DB
}

func NewTodoRepo(db *sql.DB) *TodoRepo {
	return &TodoRepo{DB: db}
}

// ==========================
// Create Todo
// ==========================
func (r *TodoRepo) Create(ctx context.Context, title, description string, completed bool, ownerID int) (*models.Todo, error) {
	query := `
		INSERT INTO todos (title, description, completed, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, COALESCE(description, ''), completed, owner_id
	`

	todo := &models.Todo{}

	err := r.DB.QueryRowContext(ctx, query, title, nullable(description), completed, ownerID).
		Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.OwnerID)

	if err != nil {
		return nil, err
	}

	return todo, nil
}

// ==========================
// List By Owner
// ==========================
func (r *TodoRepo) ListByOwner(ctx context.Context, ownerID, offset, limit int) ([]models.Todo, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), completed, owner_id
		FROM todos
		WHERE owner_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.OwnerID); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}

	return todos, rows.Err()
}

// ==========================
// Get By ID
// ==========================
func (r *TodoRepo) GetByID(ctx context.Context, id, ownerID int) (*models.Todo, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), completed, owner_id
		FROM todos
		WHERE id = $1 AND owner_id = $2
	`

	todo := &models.Todo{}

	err := r.DB.QueryRowContext(ctx, query, id, ownerID).
		Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.OwnerID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return todo, nil
}

// ==========================
// Update Todo (partial)
// ==========================
// Nil patch fields bind as NULL and fall through COALESCE, leaving the stored
// value untouched.
func (r *TodoRepo) Update(ctx context.Context, id, ownerID int, patch models.TodoPatch) (*models.Todo, error) {
	query := `
		UPDATE todos
		SET title = COALESCE($1, title),
		    description = COALESCE($2, description),
		    completed = COALESCE($3, completed)
		WHERE id = $4 AND owner_id = $5
		RETURNING id, title, COALESCE(description, ''), completed, owner_id
	`

	todo := &models.Todo{}

	err := r.DB.QueryRowContext(ctx, query, patch.Title, patch.Description, patch.Completed, id, ownerID).
		Scan(&todo.ID, &todo.Title, &todo.Description, &todo.Completed, &todo.OwnerID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return todo, nil
}

// ==========================
// Delete Todo
// ==========================
func (r *TodoRepo) Delete(ctx context.Context, id, ownerID int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ==========================
// Count Todos
// ==========================
func (r *TodoRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&n)
	return n, err
}
