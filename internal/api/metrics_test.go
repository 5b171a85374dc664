package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsEndpoint(t *testing.T) {
	InitMetrics()
	SetAdventureID("cave")
	SetLastReload(time.Unix(1700000000, 0))
	SetAdventureReady(true)

	s, _ := newTestServer(t)
	h := s.Handler()
	post(t, h, "/handler/fetch_current_step", "m1", "{}")
	post(t, h, "/handler/submit", "m1", "{}")
	post(t, h, "/handler/submit", "m1", `{"choice":"up"}`)

	w := httptest.NewRecorder()
	metricsHandler(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	for _, want := range []string{
		"# TYPE adventure_uptime_seconds gauge",
		"# TYPE adventure_events_total counter",
		`adventure_loaded{adventure="cave"`,
		"adventure_last_reload_timestamp{",
		"} 1700000000\n",
		`op="submit"} 2`,
		`op="fetch_current_step"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q\n%s", want, body)
		}
	}
	if !strings.Contains(body, "adventure_step_failures_total{") {
		t.Error("expected failure counter")
	}
}

func TestMetricsRejectsPost(t *testing.T) {
	w := httptest.NewRecorder()
	metricsHandler(w, httptest.NewRequest("POST", "/metrics", nil))
	if w.Code != 405 {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
