package mqtt

import (
	"log"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber is the part of Client the control subscriber needs.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Reloader re-reads the adventure definition.
type Reloader interface {
	Reload() error
}

// ControlSubscriber listens on <prefix>/control/reload and triggers a
// definition reload for each message. Subscription is idempotent across
// reconnects.
type ControlSubscriber struct {
	mu         sync.Mutex
	client     Subscriber
	reloader   Reloader
	topic      string
	subscribed bool
}

// NewControlSubscriber creates a control subscriber under prefix.
func NewControlSubscriber(client Subscriber, reloader Reloader, prefix string) *ControlSubscriber {
	return &ControlSubscriber{
		client:   client,
		reloader: reloader,
		topic:    prefix + "/control/reload",
	}
}

// Topic returns the reload topic.
func (s *ControlSubscriber) Topic() string {
	return s.topic
}

// Subscribe subscribes to the reload topic if not already subscribed.
func (s *ControlSubscriber) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribed {
		return nil
	}
	if err := s.client.Subscribe(s.topic, s.handle); err != nil {
		return err
	}
	s.subscribed = true
	return nil
}

// IsSubscribed reports whether the reload topic is subscribed.
func (s *ControlSubscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// ClearSubscription forgets the subscription so the next Subscribe call
// re-subscribes. Call this on disconnect.
func (s *ControlSubscriber) ClearSubscription() {
	s.mu.Lock()
	s.subscribed = false
	s.mu.Unlock()
}

func (s *ControlSubscriber) handle(_ paho.Client, msg paho.Message) {
	if err := s.reloader.Reload(); err != nil {
		log.Printf("mqtt: reload requested on %s failed: %v", msg.Topic(), err)
		return
	}
	log.Printf("mqtt: reloaded adventure on request from %s", msg.Topic())
}
