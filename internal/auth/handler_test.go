package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/portalkota/portalkota/internal/auth"
	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/shared"
	_ "github.com/portalkota/portalkota/testing"
)

type stubRepo struct {
	user  *auth.User
	codes []string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) GetProfile(ctx context.Context, userID int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) ListGrantCodes(ctx context.Context, userID int64) ([]string, error) {
	return append([]string(nil), s.codes...), nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := discardLogger()
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager)
	return handler, sessionManager
}

func withSession(t *testing.T, manager *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("rahasia-123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{
		user: &auth.User{
			ID: 20, Email: "penulis@kota.go.id", Name: "Penulis",
			PasswordHash: string(hashed), Role: authz.RoleAuthor, IsActive: true,
		},
		codes: []string{"agenda_kota"},
	}
	handler, manager := newAuthHandler(t, repo)

	body := `{"email":"penulis@kota.go.id","password":"rahasia-123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, manager, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
		Pages  []struct {
			Code string `json:"code"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.UserID != 20 || payload.Role != "author" {
		t.Fatalf("unexpected identity payload: %+v", payload)
	}
	if len(payload.Pages) != 1 || payload.Pages[0].Code != "agenda_kota" {
		t.Fatalf("unexpected pages: %+v", payload.Pages)
	}

	if sess.User() != "20" || sess.Role() != "author" {
		t.Fatalf("session identity not set: user=%q role=%q", sess.User(), sess.Role())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{
		ID: 1, Email: "user@kota.go.id", PasswordHash: string(hashed),
		Role: authz.RoleAdminUnit, IsActive: true,
	}}
	handler, manager := newAuthHandler(t, repo)

	body := `{"email":"user@kota.go.id","password":"wrongpass1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, manager, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Email atau password tidak valid") {
		t.Fatalf("expected error message in response")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("rahasia-123"), bcrypt.DefaultCost)
	repo := &stubRepo{user: &auth.User{
		ID: 1, Email: "user@kota.go.id", PasswordHash: string(hashed),
		Role: authz.RoleAuthor, IsActive: false,
	}}
	handler, manager := newAuthHandler(t, repo)

	body := `{"email":"user@kota.go.id","password":"rahasia-123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, manager, req)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestSessionEndpointRequiresIdentity(t *testing.T) {
	handler, manager := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req, _ = withSession(t, manager, req)

	res := httptest.NewRecorder()
	handler.HandleSessionForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRefreshReplacesGrantSetAtomically(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("rahasia-123"), bcrypt.DefaultCost)
	repo := &stubRepo{
		user: &auth.User{
			ID: 20, Email: "penulis@kota.go.id", PasswordHash: string(hashed),
			Role: authz.RoleAuthor, IsActive: true,
		},
		codes: []string{"agenda_kota"},
	}
	handler, manager := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req, sess := withSession(t, manager, req)
	sess.SetIdentity("20", "author", []string{"agenda_kota", "layanan"})

	// Grants shrank in the store since sign-in.
	repo.codes = []string{"berita"}

	res := httptest.NewRecorder()
	handler.HandleRefreshForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	pages := sess.Pages()
	if len(pages) != 1 || pages[0] != "berita" {
		t.Fatalf("expected wholesale replacement, got %v", pages)
	}
}
