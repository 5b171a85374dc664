package api

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/version"
)

var metricsState = &MetricsState{
	stepRequests: make(map[stepOp]int64),
	stepFailures: make(map[stepOp]int64),
	lastReload:   -1,
}

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu           sync.RWMutex
	startTime    time.Time
	adventureID  string
	stepRequests map[stepOp]int64
	stepFailures map[stepOp]int64
	lastReload   int64 // Unix timestamp, -1 if never
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.stepRequests = make(map[stepOp]int64)
	metricsState.stepFailures = make(map[stepOp]int64)
	metricsState.lastReload = -1
}

// SetAdventureID sets the adventure label on every metric.
func SetAdventureID(id string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.adventureID = id
}

// GetAdventureID returns the current adventure label.
func GetAdventureID() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.adventureID
}

// SetLastReload records when the definition was last swapped in.
func SetLastReload(ts time.Time) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.lastReload = ts.Unix()
}

func recordStepRequest(op stepOp, failed bool) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.stepRequests[op]++
	if failed {
		metricsState.stepFailures[op]++
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	adventureID := metricsState.adventureID
	lastReload := metricsState.lastReload
	ops := make([]string, 0, len(metricsState.stepRequests))
	requests := make(map[string]int64, len(metricsState.stepRequests))
	failures := make(map[string]int64, len(metricsState.stepFailures))
	for op, n := range metricsState.stepRequests {
		ops = append(ops, string(op))
		requests[string(op)] = n
		failures[string(op)] = metricsState.stepFailures[op]
	}
	metricsState.mu.RUnlock()
	sort.Strings(ops)

	readiness.mu.RLock()
	adventureReady := readiness.adventureReady
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	labels := fmt.Sprintf(`adventure="%s",instance="%s",version="%s"`, adventureID, hostname, version.Version)

	writeHeader := func(name, mtype, help string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
	}
	writeMetric := func(name, mtype, help string, value interface{}) {
		writeHeader(name, mtype, help)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	writeMetric("adventure_uptime_seconds", "gauge",
		"Number of seconds since the server started", time.Since(startTime).Seconds())
	writeMetric("adventure_loaded", "gauge",
		"Whether a valid adventure is loaded (1) or not (0)", boolGauge(adventureReady))
	writeMetric("adventure_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount())
	writeMetric("adventure_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected))
	writeMetric("adventure_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected))
	writeMetric("adventure_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount())
	writeMetric("adventure_ws_dropped_events_total", "counter",
		"Events dropped because a WebSocket client fell behind", events.DroppedCount())
	writeMetric("adventure_last_reload_timestamp", "gauge",
		"Unix timestamp of the last definition reload (-1 if never)", lastReload)

	writeHeader("adventure_step_requests_total", "counter", "Step handler requests by operation")
	for _, op := range ops {
		fmt.Fprintf(w, "adventure_step_requests_total{%s,op=\"%s\"} %d\n", labels, op, requests[op])
	}
	writeHeader("adventure_step_failures_total", "counter", "Failed step handler requests by operation")
	for _, op := range ops {
		fmt.Fprintf(w, "adventure_step_failures_total{%s,op=\"%s\"} %d\n", labels, op, failures[op])
	}
}
