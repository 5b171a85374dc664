package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

func post(t *testing.T, h http.Handler, path, learner, body string) (*httptest.ResponseRecorder, step.Envelope) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if learner != "" {
		req.Header.Set(LearnerHeader, learner)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env step.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: response is not an envelope: %v (%s)", path, err, w.Body.String())
	}
	return w, env
}

func TestFetchCurrentStep(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := post(t, s.Handler(), "/handler/fetch_current_step", "l1", "{}")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.Result != step.ResultSuccess || env.Step == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Step.Name != "first" || !env.Step.HasNextStep || env.Step.CanStartOver {
		t.Errorf("unexpected first step: %+v", env.Step)
	}
	if !strings.Contains(env.Step.HTML, "Welcome to the cave.") {
		t.Errorf("expected rendered html, got %q", env.Step.HTML)
	}
}

func TestSubmitFollowsChoice(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	_, env := post(t, h, "/handler/submit", "l1", "{}")
	if env.Step.Name != "fork" || !env.Step.HasChoices || env.Step.HasNextStep {
		t.Fatalf("unexpected fork step: %+v", env.Step)
	}
	if len(env.Step.Choices) != 2 || env.Step.Choices[0].Label != "Go left" {
		t.Errorf("unexpected choices: %+v", env.Step.Choices)
	}

	_, env = post(t, h, "/handler/submit", "l1", `{"choice":"right"}`)
	if env.Step.Name != "pit" {
		t.Fatalf("expected pit, got %+v", env.Step)
	}

	_, env = post(t, h, "/handler/fetch_previous_step", "l1", "{}")
	if env.Step.Name != "pit" {
		t.Errorf("pit has no back step, expected to stay, got %s", env.Step.Name)
	}

	_, env = post(t, h, "/handler/submit", "l1", "")
	if env.Step.Name != "end" || env.Step.HasNextStep {
		t.Errorf("expected final step, got %+v", env.Step)
	}
}

func TestSubmitErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	post(t, h, "/handler/submit", "l1", "{}")

	w, env := post(t, h, "/handler/submit", "l1", `{"choice":"up"}`)
	if w.Code != http.StatusBadRequest || env.Result != step.ResultError {
		t.Fatalf("expected error envelope, got %d %+v", w.Code, env)
	}
	if env.Message != `invalid choice "up" for step "fork"` {
		t.Errorf("unexpected message %q", env.Message)
	}

	w, env = post(t, h, "/handler/submit", "l1", `{"choice":`)
	if w.Code != http.StatusBadRequest || env.Message != "invalid JSON" {
		t.Errorf("expected invalid JSON, got %d %+v", w.Code, env)
	}
}

func TestSubmitAtEnd(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	post(t, h, "/handler/submit", "l1", "{}")
	post(t, h, "/handler/submit", "l1", `{"choice":"left"}`)

	_, env := post(t, h, "/handler/submit", "l1", "{}")
	if env.Step.Name != "end" {
		t.Fatalf("document order after treasure is end, got %s", env.Step.Name)
	}

	w, env := post(t, h, "/handler/submit", "l1", "{}")
	if w.Code != http.StatusBadRequest || env.Message != "no next step, current_step: end" {
		t.Errorf("unexpected response %d %+v", w.Code, env)
	}
}

func TestStartOverClearsChoices(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	post(t, h, "/handler/submit", "l1", "{}")
	post(t, h, "/handler/submit", "l1", `{"choice":"left"}`)

	_, env := post(t, h, "/handler/start_over", "l1", "{}")
	if env.Step.Name != "first" {
		t.Fatalf("expected first, got %s", env.Step.Name)
	}

	_, env = post(t, h, "/handler/submit", "l1", "{}")
	if env.Step.StudentChoice != "" {
		t.Errorf("expected choices cleared, got %q", env.Step.StudentChoice)
	}
}

func TestStepHandlerRejectsGet(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/handler/fetch_current_step", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestLearnerCookieAssigned(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w, _ := post(t, h, "/handler/submit", "", "{}")
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == LearnerCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected learner cookie on first request")
	}

	req := httptest.NewRequest("POST", "/handler/fetch_current_step", strings.NewReader("{}"))
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env step.Envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Step == nil || env.Step.Name != "fork" {
		t.Errorf("cookie should carry progress, got %+v", env.Step)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("known learner must not get a new cookie")
	}
}

func TestLearnersAreIsolated(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	post(t, h, "/handler/submit", "l1", "{}")
	_, env := post(t, h, "/handler/fetch_current_step", "l2", "{}")
	if env.Step.Name != "first" {
		t.Errorf("l2 should start at first, got %s", env.Step.Name)
	}
}

func TestPublishEvent(t *testing.T) {
	events.Clear()
	s, _ := newTestServer(t)

	w, env := post(t, s.Handler(), "/handler/publish_event", "l1",
		`{"event_type":"adventure.choice-selected","step":"fork","choice":"left"}`)
	if w.Code != http.StatusOK || env.Result != step.ResultSuccess {
		t.Fatalf("unexpected response %d %+v", w.Code, env)
	}

	snap := events.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 event, got %d", len(snap))
	}
	e := snap[0]
	if e.Name != "adventure.choice-selected" {
		t.Errorf("unexpected event %s", e.Name)
	}
	if e.Fields["step"] != "fork" || e.Fields["choice"] != "left" || e.Fields["learner_id"] != "l1" {
		t.Errorf("unexpected fields %v", e.Fields)
	}
	if _, ok := e.Fields["event_type"]; ok {
		t.Error("event_type must not be repeated in fields")
	}
}

func TestPublishEventRequiresType(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := post(t, s.Handler(), "/handler/publish_event", "l1", `{"step":"fork"}`)
	if w.Code != http.StatusBadRequest || env.Message != "Missing event_type in JSON data" {
		t.Errorf("unexpected response %d %+v", w.Code, env)
	}
}

func TestPublishEventRejectsServerEvents(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := post(t, s.Handler(), "/handler/publish_event", "l1", `{"event_type":"system.startup"}`)
	if w.Code != http.StatusBadRequest || env.Result != step.ResultError {
		t.Errorf("learners must not publish server events, got %d %+v", w.Code, env)
	}
}

func TestPublishEventRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.limiter = newIPRateLimiter(0.001, 2)
	h := s.Handler()

	body := `{"event_type":"adventure.step-shown","step":"first"}`
	for i := 0; i < 2; i++ {
		if w, _ := post(t, h, "/handler/publish_event", "l1", body); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w, env := post(t, h, "/handler/publish_event", "l1", body)
	if w.Code != http.StatusTooManyRequests || env.Message != "rate limit exceeded" {
		t.Errorf("expected 429, got %d %+v", w.Code, env)
	}
}
