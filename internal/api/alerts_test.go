package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestOutageAlertsAfterDelayAndRecovers(t *testing.T) {
	o := &outage{event: AlertPostgresUnavailable, severity: SeverityCritical, label: "PostgreSQL", delay: 5 * time.Second}
	start := time.Unix(1000, 0)

	if send, _ := o.observe(false, start); send {
		t.Error("must not alert immediately")
	}
	if send, _ := o.observe(false, start.Add(4*time.Second)); send {
		t.Error("must not alert before delay")
	}

	send, p := o.observe(false, start.Add(6*time.Second))
	if !send || p.Severity != SeverityCritical || p.Message != "PostgreSQL unavailable" {
		t.Fatalf("expected critical alert, got %v %+v", send, p)
	}
	if p.Details["disconnected_seconds"] != 6 {
		t.Errorf("unexpected details %v", p.Details)
	}

	if send, _ := o.observe(false, start.Add(20*time.Second)); send {
		t.Error("must alert once per outage")
	}

	send, p = o.observe(true, start.Add(30*time.Second))
	if !send || p.Severity != SeverityInfo || p.Message != "PostgreSQL restored" {
		t.Errorf("expected recovery alert, got %v %+v", send, p)
	}
	if send, _ := o.observe(true, start.Add(31*time.Second)); send {
		t.Error("no alert while healthy")
	}
}

func TestShortOutageDoesNotAlert(t *testing.T) {
	o := &outage{event: AlertMQTTDisconnected, severity: SeverityWarning, label: "MQTT broker", delay: 30 * time.Second}
	start := time.Unix(1000, 0)

	o.observe(false, start)
	if send, _ := o.observe(true, start.Add(10*time.Second)); send {
		t.Error("recovery without prior alert must stay silent")
	}
}

func TestCheckAlertsPostsWebhook(t *testing.T) {
	var mu sync.Mutex
	var got []AlertPayload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p AlertPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer hook.Close()

	t.Setenv("ADVENTURE_ALERT_WEBHOOK_URL", hook.URL)
	t.Setenv("ADVENTURE_POSTGRES_ALERT_DELAY", "0s")
	t.Setenv("ADVENTURE_MQTT_ALERT_DELAY", "1h")
	InitAlerts()
	t.Cleanup(func() {
		alertMu.Lock()
		alertWebhookURL = ""
		alertMu.Unlock()
	})
	SetAdventureID("cave")

	setReadiness(true, false, true, false, false)
	checkAlerts(time.Now())

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "webhook to receive postgres alert")

	mu.Lock()
	defer mu.Unlock()
	if got[0].Event != AlertPostgresUnavailable || got[0].AdventureID != "cave" {
		t.Errorf("unexpected alert %+v", got[0])
	}
}
