package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/shared"
	_ "github.com/portalkota/portalkota/testing"
)

func newSession(t *testing.T) (*shared.SessionManager, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return manager, sess
}

func serveGuarded(t *testing.T, sess *shared.Session, page authz.Page) int {
	t.Helper()
	mw := authz.Middleware{}
	handler := mw.RequirePage(page)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res.Code
}

func TestRequirePageWithoutSession(t *testing.T) {
	if code := serveGuarded(t, nil, authz.PageNews); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequirePageAnonymousSession(t *testing.T) {
	_, sess := newSession(t)
	if code := serveGuarded(t, sess, authz.PageNews); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequirePageDenied(t *testing.T) {
	_, sess := newSession(t)
	sess.SetIdentity("20", "author", []string{"agenda_kota"})
	if code := serveGuarded(t, sess, authz.PageServices); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequirePageAllowed(t *testing.T) {
	_, sess := newSession(t)
	sess.SetIdentity("20", "author", []string{"agenda_kota"})
	if code := serveGuarded(t, sess, authz.PageCityAgenda); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequirePageGarbageIdentityFailsClosed(t *testing.T) {
	_, sess := newSession(t)
	sess.SetIdentity("abc", "author", nil)
	if code := serveGuarded(t, sess, authz.PageCityAgenda); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	_, sess = newSession(t)
	sess.SetIdentity("20", "moderator", []string{"agenda_kota"})
	if code := serveGuarded(t, sess, authz.PageCityAgenda); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestIdentityFromSessionRoundTrip(t *testing.T) {
	_, sess := newSession(t)
	sess.SetIdentity("10", "admin_unit", []string{"berita", "berita", "layanan"})

	id, ok := authz.IdentityFromSession(sess)
	if !ok {
		t.Fatalf("expected identity")
	}
	if id.UserID != 10 || id.Role != authz.RoleAdminUnit {
		t.Fatalf("unexpected identity: %+v", id)
	}
	got := id.Pages.Sorted()
	if len(got) != 2 || got[0] != authz.PageNews || got[1] != authz.PageServices {
		t.Fatalf("unexpected pages: %v", got)
	}
}
