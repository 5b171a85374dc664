package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/AdventureEngine/internal/events"
)

// ErrNotConnected is returned by TelemetrySink while the broker is down.
var ErrNotConnected = errors.New("mqtt not connected")

// Publisher is the part of Client the telemetry sink needs.
type Publisher interface {
	Publish(topic string, qos byte, payload []byte) error
	IsConnected() bool
}

// TelemetrySink forwards every emitted event as JSON to <prefix>/<event>
// at QoS 0.
type TelemetrySink struct {
	pub    Publisher
	prefix string
}

// NewTelemetrySink returns a sink publishing under prefix.
func NewTelemetrySink(pub Publisher, prefix string) *TelemetrySink {
	return &TelemetrySink{pub: pub, prefix: strings.TrimSuffix(prefix, "/")}
}

func (s *TelemetrySink) Name() string {
	return "mqtt"
}

// Topic returns the topic an event named name is published to.
func (s *TelemetrySink) Topic(name string) string {
	return s.prefix + "/" + name
}

func (s *TelemetrySink) Append(e events.Event) error {
	if !s.pub.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.pub.Publish(s.Topic(e.Name), 0, payload)
}
