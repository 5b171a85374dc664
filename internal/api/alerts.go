package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	AdventureID string                 `json:"adventure_id"`
	Event       string                 `json:"event"`
	Timestamp   string                 `json:"timestamp"`
	Severity    string                 `json:"severity"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// outage tracks one dependency. An alert fires once the dependency has
// been down for delay, and a recovery alert follows when it returns.
type outage struct {
	event     string
	severity  string
	label     string
	delay     time.Duration
	downSince time.Time
	alerted   bool
}

func (o *outage) observe(connected bool, now time.Time) (send bool, p AlertPayload) {
	if connected {
		send = o.alerted
		if send {
			p = AlertPayload{Event: o.event, Severity: SeverityInfo, Message: o.label + " restored",
				Details: map[string]interface{}{"recovered_at": now.UTC().Format(time.RFC3339)}}
		}
		o.downSince = time.Time{}
		o.alerted = false
		return send, p
	}

	if o.downSince.IsZero() {
		o.downSince = now
	}
	down := now.Sub(o.downSince)
	if o.alerted || down < o.delay {
		return false, p
	}
	o.alerted = true
	return true, AlertPayload{Event: o.event, Severity: o.severity, Message: o.label + " unavailable",
		Details: map[string]interface{}{
			"disconnected_since":   o.downSince.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(down.Seconds()),
		}}
}

var (
	alertMu         sync.Mutex
	alertWebhookURL string
	mqttOutage      = &outage{event: AlertMQTTDisconnected, severity: SeverityWarning, label: "MQTT broker", delay: 30 * time.Second}
	postgresOutage  = &outage{event: AlertPostgresUnavailable, severity: SeverityCritical, label: "PostgreSQL", delay: 5 * time.Second}
)

// InitAlerts reads ADVENTURE_ALERT_WEBHOOK_URL and the optional
// ADVENTURE_MQTT_ALERT_DELAY and ADVENTURE_POSTGRES_ALERT_DELAY durations.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertWebhookURL = os.Getenv("ADVENTURE_ALERT_WEBHOOK_URL")
	if d, err := time.ParseDuration(os.Getenv("ADVENTURE_MQTT_ALERT_DELAY")); err == nil {
		mqttOutage.delay = d
	}
	if d, err := time.ParseDuration(os.Getenv("ADVENTURE_POSTGRES_ALERT_DELAY")); err == nil {
		postgresOutage.delay = d
	}
	mqttOutage.downSince, mqttOutage.alerted = time.Time{}, false
	postgresOutage.downSince, postgresOutage.alerted = time.Time{}, false

	if alertWebhookURL != "" {
		log.Printf("api: alerts enabled (mqtt_delay=%s, pg_delay=%s)", mqttOutage.delay, postgresOutage.delay)
	}
}

// SendAlert posts p to the webhook in the background, or logs it when no
// webhook is configured.
func SendAlert(p AlertPayload) {
	alertMu.Lock()
	url := alertWebhookURL
	alertMu.Unlock()

	p.AdventureID = GetAdventureID()
	if p.Timestamp == "" {
		p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", p.Event, p.Severity, p.Message, p.Details)
		return
	}
	go sendWebhook(url, p)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

// checkAlerts feeds the current readiness state into the outage trackers.
// Optional dependencies never alert.
func checkAlerts(now time.Time) {
	readiness.mu.RLock()
	mqttOK := readiness.mqttConnected || readiness.mqttOptional
	pgOK := readiness.postgresConnected || readiness.postgresOptional
	readiness.mu.RUnlock()

	alertMu.Lock()
	var pending []AlertPayload
	if send, p := mqttOutage.observe(mqttOK, now); send {
		pending = append(pending, p)
	}
	if send, p := postgresOutage.observe(pgOK, now); send {
		pending = append(pending, p)
	}
	alertMu.Unlock()

	for _, p := range pending {
		SendAlert(p)
	}
}

// StartAlertMonitor checks dependency state every interval until stop is closed.
func StartAlertMonitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				checkAlerts(now)
			case <-stop:
				return
			}
		}
	}()
}
