package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AaronLay10/AdventureEngine/internal/config"
)

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func withAuth(t *testing.T, user, pass string) {
	t.Helper()
	auth = &authConfig{
		admin:   config.Credentials{User: user, Pass: pass},
		enabled: user != "" && pass != "",
	}
	t.Cleanup(func() { auth = nil })
}

func TestAuthDisabledAllowsEverything(t *testing.T) {
	withAuth(t, "", "")

	if IsAuthEnabled() {
		t.Error("auth should be disabled without credentials")
	}

	called := false
	w := httptest.NewRecorder()
	RequireAdmin(okHandler(&called))(w, httptest.NewRequest("GET", "/studio", nil))

	if !called {
		t.Error("handler should be called when auth is disabled")
	}
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	withAuth(t, "author", "secret")

	called := false
	w := httptest.NewRecorder()
	RequireAdmin(okHandler(&called))(w, httptest.NewRequest("GET", "/studio", nil))

	if called {
		t.Error("handler should not be called without credentials")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestAuthRejectsWrongPassword(t *testing.T) {
	withAuth(t, "author", "secret")

	called := false
	req := httptest.NewRequest("GET", "/studio", nil)
	req.SetBasicAuth("author", "guess")
	w := httptest.NewRecorder()
	RequireAdmin(okHandler(&called))(w, req)

	if called || w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without calling handler, got %d (called=%v)", w.Code, called)
	}
}

func TestAuthAcceptsAdmin(t *testing.T) {
	withAuth(t, "author", "secret")

	called := false
	req := httptest.NewRequest("GET", "/studio", nil)
	req.SetBasicAuth("author", "secret")
	w := httptest.NewRecorder()
	RequireAdmin(okHandler(&called))(w, req)

	if !called {
		t.Error("handler should be called with valid credentials")
	}
}

func TestInitAuthFromEnv(t *testing.T) {
	passFile := filepath.Join(t.TempDir(), "pass")
	if err := os.WriteFile(passFile, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADVENTURE_ADMIN_USER", "author")
	t.Setenv("ADVENTURE_ADMIN_PASS_FILE", passFile)
	t.Cleanup(func() { auth = nil })

	if err := InitAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsAuthEnabled() {
		t.Fatal("auth should be enabled")
	}
	if auth.admin.Pass != "from-file" {
		t.Errorf("expected password from file, got %q", auth.admin.Pass)
	}
}

func TestInitAuthUnreadableFile(t *testing.T) {
	t.Setenv("ADVENTURE_ADMIN_USER", "author")
	t.Setenv("ADVENTURE_ADMIN_PASS_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Cleanup(func() { auth = nil })

	if err := InitAuth(); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}
