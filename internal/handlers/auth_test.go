package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/crucial707/todo-api/internal/token"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	tokens := token.NewService([]byte("test-secret"), 30*time.Minute)
	h := NewAuthHandler(repo.NewUserRepo(db), tokens, nil)
	return h, mock, func() { db.Close() }
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "full_name", "hashed_password"})
}

func TestAuthHandler_Signup(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("alice").
		WillReturnRows(emptyUserRows())
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "coalesce"}).
			AddRow(1, "alice", "alice@example.com", "Alice A"))

	body, _ := json.Marshal(map[string]string{
		"username":  "alice",
		"email":     "alice@example.com",
		"full_name": "Alice A",
		"password":  "password123",
	})
	req := httptest.NewRequest("POST", "/auth/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Signup status: got %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var out map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["username"] != "alice" || out["email"] != "alice@example.com" {
		t.Errorf("unexpected response: %+v", out)
	}
	if _, leaked := out["hashed_password"]; leaked {
		t.Error("response leaks hashed_password")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Signup_DuplicateUsername_FastPath(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "full_name", "hashed_password"}).
			AddRow(1, "alice", "alice@example.com", "", "hashed"))

	body, _ := json.Marshal(map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest("POST", "/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Signup_DuplicateEmail_ConstraintViolation(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	// Pre-check passes; the insert loses the race and hits the unique constraint.
	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("bob").
		WillReturnRows(emptyUserRows())
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("bob", "alice@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	body, _ := json.Marshal(map[string]string{
		"username": "bob",
		"email":    "alice@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest("POST", "/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
	var out map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&out)
	if out["error"] != "email already registered" {
		t.Errorf("unexpected error: %q", out["error"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Signup_ValidationFailed(t *testing.T) {
	h, _, done := newAuthHandler(t)
	defer done()

	body, _ := json.Marshal(map[string]string{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	req := httptest.NewRequest("POST", "/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestAuthHandler_Token(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "full_name", "hashed_password"}).
			AddRow(1, "alice", "alice@example.com", "", string(hash)))

	form := url.Values{"username": {"alice"}, "password": {"password123"}}
	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Token status: got %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.AccessToken == "" || out.TokenType != "bearer" {
		t.Errorf("unexpected response: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Token_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	cases := []struct {
		name     string
		username string
		rows     *sqlmock.Rows
	}{
		{"unknown username", "nobody", emptyUserRows()},
		{"wrong password", "alice", sqlmock.NewRows(
			[]string{"id", "username", "email", "full_name", "hashed_password"}).
			AddRow(1, "alice", "alice@example.com", "", string(hash))},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock, done := newAuthHandler(t)
			defer done()

			mock.ExpectQuery(`SELECT id, username, email`).
				WithArgs(tc.username).
				WillReturnRows(tc.rows)

			form := url.Values{"username": {tc.username}, "password": {"wrong-password"}}
			req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			h.Token(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rr.Code)
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("WWW-Authenticate: got %q, want Bearer", got)
			}
			bodies = append(bodies, rr.Body.String())
		})
	}

	if len(bodies) == 2 && bodies[0] != bodies[1] {
		t.Errorf("response bodies differ between unknown user and wrong password: %q vs %q", bodies[0], bodies[1])
	}
}
