package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/crucial707/todo-api/internal/models"
	"github.com/lib/pq"
)

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// ==========================
// Create User
// ==========================
// Create inserts a new user. Unique-constraint violations are translated to
// ErrDuplicateUsername / ErrDuplicateEmail; the DB constraint is the
// authoritative duplicate signal, not any prior existence check.
func (r *UserRepo) Create(ctx context.Context, username, email, fullName, hashedPassword string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, full_name, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, COALESCE(full_name, '')
	`

	user := &models.User{HashedPassword: hashedPassword}

	err := r.DB.QueryRowContext(ctx, query, username, email, nullable(fullName), hashedPassword).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return nil, ErrDuplicateEmail
			}
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By Username
// ==========================
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, COALESCE(full_name, ''), hashed_password
		FROM users
		WHERE username = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.HashedPassword)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, username, email, COALESCE(full_name, ''), hashed_password
		FROM users
		WHERE id = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.HashedPassword)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// ==========================
// Count Users
// ==========================
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// nullable maps "" to NULL so optional columns stay NULL instead of empty strings.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
