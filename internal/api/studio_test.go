package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/AdventureEngine/internal/events"
)

func studioRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, StudioResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))

	var resp StudioResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode studio response: %v", err)
		}
	}
	return w, resp
}

func TestStudioGetAdventure(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := studioRequest(t, s.Handler(), "GET", "/studio/adventure", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "id: cave") {
		t.Errorf("expected YAML definition, got %s", w.Body.String())
	}
}

func TestStudioSaveSwapsAndWrites(t *testing.T) {
	events.Clear()
	s, engine := newTestServer(t)
	s.path = filepath.Join(t.TempDir(), "cave.yaml")

	def := "version: 1\nid: cave\ntitle: Short cave\nsteps:\n  - name: first\n    content: hi\n"
	w, resp := studioRequest(t, s.Handler(), "POST", "/studio/adventure", def)
	if w.Code != http.StatusOK || !resp.OK || resp.Steps != 1 {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}

	if engine.Adventure().Title != "Short cave" {
		t.Errorf("definition was not swapped in")
	}
	saved, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("definition was not written: %v", err)
	}
	if string(saved) != def {
		t.Errorf("saved file differs from body")
	}

	snap := events.Snapshot()
	if len(snap) == 0 || snap[len(snap)-1].Name != "adventure.saved" {
		t.Errorf("expected adventure.saved event, got %+v", snap)
	}
}

func TestStudioSaveRejectsInvalid(t *testing.T) {
	s, engine := newTestServer(t)

	w, resp := studioRequest(t, s.Handler(), "POST", "/studio/adventure",
		"version: 1\nsteps:\n  - name: intro\n    back: nowhere\n")
	if w.Code != http.StatusBadRequest || resp.OK {
		t.Fatalf("expected 400, got %d %+v", w.Code, resp)
	}
	if resp.Error != "invalid adventure" || len(resp.Problems) != 2 {
		t.Errorf("expected two problems, got %+v", resp)
	}
	if engine.Adventure().Title != "Cave" {
		t.Error("invalid definition must not be swapped in")
	}
}

func TestStudioRequiresAdmin(t *testing.T) {
	withAuth(t, "author", "secret")
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/studio/adventure", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

type fakeReloader struct {
	err   error
	calls int
}

func (f *fakeReloader) Reload() error {
	f.calls++
	return f.err
}

func TestStudioReload(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := studioRequest(t, s.Handler(), "POST", "/studio/reload", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without reloader, got %d", w.Code)
	}

	r := &fakeReloader{}
	s.reloader = r
	w, resp := studioRequest(t, s.Handler(), "POST", "/studio/reload", "")
	if w.Code != http.StatusOK || !resp.OK || resp.Steps != 5 || r.calls != 1 {
		t.Errorf("unexpected reload response %d %+v", w.Code, resp)
	}

	r.err = errors.New("invalid adventure: bad")
	w, resp = studioRequest(t, s.Handler(), "POST", "/studio/reload", "")
	if w.Code != http.StatusBadRequest || resp.Error != "invalid adventure: bad" {
		t.Errorf("unexpected failure response %d %+v", w.Code, resp)
	}
}

func TestStudioUI(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/studio", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Adventure Studio") {
		t.Errorf("unexpected studio page %d", w.Code)
	}
}
