// Package bus is the typed publish/subscribe channel shared by the
// components of one walkthrough instance.
package bus

import (
	"sync"

	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// Kind is the closed set of bus events.
type Kind int

const (
	StepChanged Kind = iota + 1
	ChoiceSelected
	RequestNext
	RequestPrevious
	RequestStartOver
	// FetchFailed is published by the coordinator when a remote operation
	// fails and no step change will follow.
	FetchFailed
)

func (k Kind) String() string {
	switch k {
	case StepChanged:
		return "step-changed"
	case ChoiceSelected:
		return "choice-selected"
	case RequestNext:
		return "request-next"
	case RequestPrevious:
		return "request-previous"
	case RequestStartOver:
		return "request-start-over"
	case FetchFailed:
		return "fetch-failed"
	default:
		return "unknown"
	}
}

// Event is one bus message. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// StepChanged
	Step step.State

	// ChoiceSelected
	ChoiceID string
	StepName string

	// FetchFailed
	Failure *step.FetchFailed
}

// StepChangedEvent announces a new active step.
func StepChangedEvent(s step.State) Event {
	return Event{Kind: StepChanged, Step: s}
}

// ChoiceSelectedEvent announces a pick for the named step.
func ChoiceSelectedEvent(choiceID, stepName string) Event {
	return Event{Kind: ChoiceSelected, ChoiceID: choiceID, StepName: stepName}
}

// FetchFailedEvent announces a failed remote operation.
func FetchFailedEvent(ff *step.FetchFailed) Event {
	return Event{Kind: FetchFailed, Failure: ff}
}

// Intent builds one of the payload-free intent events.
func Intent(k Kind) Event {
	return Event{Kind: k}
}

// Handler receives events.
type Handler func(Event)

// InputProvider answers the stepData query with the pending input of the
// step currently on display.
type InputProvider interface {
	StepData() step.Submission
}

type subscription struct {
	id      int
	kinds   map[Kind]struct{}
	handler Handler
}

func (s subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Bus delivers events synchronously in subscriber registration order.
// A publish made from inside a handler is queued and delivered after the
// current event has reached every subscriber.
type Bus struct {
	mu          sync.Mutex
	subs        []subscription
	nextID      int
	queue       []Event
	dispatching bool
	provider    InputProvider
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h for the given kinds, or for every kind when none
// are given. The returned func removes the subscription.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := subscription{id: id, handler: h}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every interested subscriber before returning,
// unless it is called from inside a handler, in which case it is queued.
// Publishing StepChanged clears the input provider slot first.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.queue = append(b.queue, e)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	// A panicking handler abandons the rest of the queue but leaves the bus
	// able to deliver later publishes.
	defer func() {
		b.mu.Lock()
		b.dispatching = false
		b.queue = nil
		b.mu.Unlock()
	}()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		if next.Kind == StepChanged {
			b.provider = nil
		}
		subs := append([]subscription(nil), b.subs...)
		b.mu.Unlock()

		for _, s := range subs {
			if s.wants(next.Kind) {
				s.handler(next)
			}
		}
	}
}

// Bind installs p as the single stepData responder, replacing any previous one.
func (b *Bus) Bind(p InputProvider) {
	b.mu.Lock()
	b.provider = p
	b.mu.Unlock()
}

// StepData asks the bound responder for its pending input. With no
// responder bound the payload is empty.
func (b *Bus) StepData() step.Submission {
	b.mu.Lock()
	p := b.provider
	b.mu.Unlock()

	if p == nil {
		return step.Submission{}
	}
	return p.StepData()
}
