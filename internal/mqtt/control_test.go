package mqtt

import (
	"errors"
	"sync"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type mockSubscriber struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	calls         int
	err           error
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{subscriptions: make(map[string]paho.MessageHandler)}
}

func (m *mockSubscriber) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockSubscriber) simulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type countingReloader struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingReloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func TestControlSubscriberReloadsOnMessage(t *testing.T) {
	client := newMockSubscriber()
	reloader := &countingReloader{}
	sub := NewControlSubscriber(client, reloader, "adventure")

	if err := sub.Subscribe(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Topic() != "adventure/control/reload" {
		t.Errorf("unexpected topic %q", sub.Topic())
	}

	client.simulateMessage("adventure/control/reload", []byte("{}"))
	client.simulateMessage("adventure/control/reload", nil)

	if reloader.count != 2 {
		t.Errorf("expected 2 reloads, got %d", reloader.count)
	}
}

func TestControlSubscriberIsIdempotent(t *testing.T) {
	client := newMockSubscriber()
	sub := NewControlSubscriber(client, &countingReloader{}, "adventure")

	sub.Subscribe()
	sub.Subscribe()
	if client.calls != 1 {
		t.Errorf("expected 1 subscribe call, got %d", client.calls)
	}

	sub.ClearSubscription()
	if sub.IsSubscribed() {
		t.Error("expected subscription cleared")
	}
	sub.Subscribe()
	if client.calls != 2 {
		t.Errorf("expected re-subscribe after clear, got %d calls", client.calls)
	}
}

func TestControlSubscriberSubscribeFailure(t *testing.T) {
	client := newMockSubscriber()
	client.err = &TimeoutError{Op: "subscribe", Topic: "adventure/control/reload"}
	sub := NewControlSubscriber(client, &countingReloader{}, "adventure")

	err := sub.Subscribe()
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if sub.IsSubscribed() {
		t.Error("failed subscribe must not be tracked")
	}
}

func TestControlSubscriberSurvivesReloadError(t *testing.T) {
	client := newMockSubscriber()
	reloader := &countingReloader{err: errors.New("invalid adventure")}
	sub := NewControlSubscriber(client, reloader, "adventure")
	sub.Subscribe()

	client.simulateMessage("adventure/control/reload", nil)
	client.simulateMessage("adventure/control/reload", nil)

	if reloader.count != 2 {
		t.Errorf("expected 2 reload attempts, got %d", reloader.count)
	}
}
