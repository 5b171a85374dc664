package api

import (
	"encoding/json"
	"net/http"
	"sync"
)

// readinessState tracks the dependencies /ready reports on. MQTT and
// Postgres may be marked optional, in which case they are reported but
// do not fail readiness.
type readinessState struct {
	mu                sync.RWMutex
	adventureReady    bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

var readiness = &readinessState{
	mqttOptional:     true,
	postgresOptional: true,
}

// CheckResult is the status of one dependency.
type CheckResult struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

// ReadinessResponse is the /ready body.
type ReadinessResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]CheckResult `json:"checks"`
}

// SetAdventureReady records whether a valid definition is loaded.
func SetAdventureReady(ready bool) {
	readiness.mu.Lock()
	readiness.adventureReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records the broker connection and whether it is required.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records the database connection and whether it is required.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "not_ready"
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	resp := ReadinessResponse{
		Ready: readiness.adventureReady &&
			(readiness.mqttConnected || readiness.mqttOptional) &&
			(readiness.postgresConnected || readiness.postgresOptional),
		Checks: map[string]CheckResult{
			"adventure": {Status: status(readiness.adventureReady)},
			"mqtt":      {Status: status(readiness.mqttConnected), Optional: readiness.mqttOptional},
			"postgres":  {Status: status(readiness.postgresConnected), Optional: readiness.postgresOptional},
		},
	}
	readiness.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
