package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/todo-api/internal/repo"
	"github.com/crucial707/todo-api/internal/token"
)

func newAuthedHandler(t *testing.T, users *repo.UserRepo, tokens *token.Service) http.Handler {
	t.Helper()
	return RequireUser(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("user missing from context")
		}
		w.Write([]byte(user.Username))
	}))
}

func TestRequireUser_ValidToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "full_name", "hashed_password"}).
			AddRow(1, "alice", "alice@example.com", "", "hashed"))

	tokens := token.NewService([]byte("test-secret"), 30*time.Minute)
	tok, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h := newAuthedHandler(t, repo.NewUserRepo(db), tokens)
	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if rr.Body.String() != "alice" {
		t.Errorf("body: got %q, want %q", rr.Body.String(), "alice")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRequireUser_Rejections(t *testing.T) {
	tokens := token.NewService([]byte("test-secret"), 30*time.Minute)
	otherTokens := token.NewService([]byte("other-secret"), 30*time.Minute)
	expired := token.NewService([]byte("test-secret"), -time.Minute)

	badSig, _ := otherTokens.Issue("alice")
	expiredTok, _ := expired.Issue("alice")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-token"},
		{"wrong signature", "Bearer " + badSig},
		{"expired", "Bearer " + expiredTok},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			h := newAuthedHandler(t, repo.NewUserRepo(db), tokens)
			req := httptest.NewRequest("GET", "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rr.Code)
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("WWW-Authenticate: got %q, want %q", got, "Bearer")
			}
		})
	}
}

func TestRequireUser_UserDeletedAfterIssue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// Token is valid but the subject no longer resolves to a row.
	mock.ExpectQuery(`SELECT id, username, email`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "full_name", "hashed_password"}))

	tokens := token.NewService([]byte("test-secret"), 30*time.Minute)
	tok, _ := tokens.Issue("ghost")

	h := newAuthedHandler(t, repo.NewUserRepo(db), tokens)
	req := httptest.NewRequest("GET", "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
