package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = newJournal(256)

// Sink persists or forwards emitted events.
type Sink interface {
	Name() string
	Append(e Event) error
}

type sinkState struct {
	sink        Sink
	errorLogged bool
}

var (
	sinks   []*sinkState
	sinksMu sync.RWMutex
)

// AddSink registers s to receive every emitted event.
func AddSink(s Sink) {
	sinksMu.Lock()
	sinks = append(sinks, &sinkState{sink: s})
	sinksMu.Unlock()
}

// RemoveSinks unregisters every sink.
func RemoveSinks() {
	sinksMu.Lock()
	sinks = nil
	sinksMu.Unlock()
}

// SinkNames returns the names of the registered sinks.
func SinkNames() []string {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.sink.Name())
	}
	return names
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Time parses the event timestamp.
func (e Event) Time() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, e.Timestamp)
	return t
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	appendToSinks(e)
	broadcast(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

// appendToSinks hands e to every sink. The first failure of each sink is
// recorded as system.error directly in the ring buffer, not through Emit,
// so a sink that keeps failing cannot recurse.
func appendToSinks(e Event) {
	sinksMu.RLock()
	current := append([]*sinkState(nil), sinks...)
	sinksMu.RUnlock()

	for _, s := range current {
		err := s.sink.Append(e)
		if err == nil {
			continue
		}

		sinksMu.Lock()
		first := !s.errorLogged
		s.errorLogged = true
		sinksMu.Unlock()

		if first {
			buffer.Add(Event{
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Level:     "error",
				Name:      "system.error",
				Message:   s.sink.Name() + " append failed",
				Fields: map[string]interface{}{
					"error": err.Error(),
				},
			})
		}
	}
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns how many events were emitted since startup.
func TotalCount() int64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Reset()
}
