package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/database"
	"github.com/juanlo017/cerves-app/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupAuthMiddlewareDB(t *testing.T) (*auth.TokenManager, *store.PlayerStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return auth.NewTokenManager(testSecret, time.Hour), store.NewPlayerStore(db)
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoToken(t *testing.T) {
	tm, ps := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()
	RequireAuth(tm, ps)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	tm, ps := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	RequireAuth(tm, ps)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	tm, ps := setupAuthMiddlewareDB(t)
	p, _ := ps.Create("device-1", "Juan", "", "hash")
	tok, _ := tm.Generate(p.ID, p.UserID)

	var got auth.AuthContext
	handler := RequireAuth(tm, ps)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		got = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.PlayerID != p.ID || got.UserID != "device-1" {
		t.Errorf("auth context = %+v", got)
	}
}

func TestRequireAuthDeletedPlayer(t *testing.T) {
	tm, ps := setupAuthMiddlewareDB(t)
	p, _ := ps.Create("device-1", "Juan", "", "hash")
	tok, _ := tm.Generate(p.ID, p.UserID)
	ps.Delete(p.ID)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	RequireAuth(tm, ps)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	tm, ps := setupAuthMiddlewareDB(t)
	p, _ := ps.Create("device-1", "Juan", "", "hash")
	tok, _ := tm.Generate(p.ID, p.UserID)

	reached := false
	handler := RequireAuth(tm, ps)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest("GET", "/ws?token="+tok, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !reached {
		t.Error("query token should authenticate websocket upgrades")
	}
}

func TestRequireAdmin(t *testing.T) {
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest("POST", "/api/drinks", nil)
	rec := httptest.NewRecorder()
	RequireAdmin("op-token")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing token status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest("POST", "/api/drinks", nil)
	req.Header.Set(AdminTokenHeader, "op-token")
	rec = httptest.NewRecorder()
	RequireAdmin("op-token")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !reached {
		t.Errorf("status = %d reached = %v, want 200 and reached", rec.Code, reached)
	}
}

func TestRequireAdminDisabled(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/drinks", nil)
	req.Header.Set(AdminTokenHeader, "")
	rec := httptest.NewRecorder()
	RequireAdmin("")(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
