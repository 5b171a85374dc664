// Package analytics reports walkthrough telemetry to an external sink.
package analytics

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/bus"
)

// EventType discriminates telemetry records.
type EventType string

const (
	StepShown      EventType = "adventure.step-shown"
	FinalStepShown EventType = "adventure.final-step-shown"
	ChoiceSelected EventType = "adventure.choice-selected"
	WentForward    EventType = "adventure.went-forward"
	WentBackward   EventType = "adventure.went-backward"
	StartedOver    EventType = "adventure.started-over"
)

// EventTypes lists every type the logger produces.
func EventTypes() []EventType {
	return []EventType{StepShown, FinalStepShown, ChoiceSelected, WentForward, WentBackward, StartedOver}
}

// Record is one flat telemetry event.
type Record struct {
	EventType EventType `json:"event_type"`
	Step      string    `json:"step,omitempty"`
	Choice    string    `json:"choice,omitempty"`
}

const (
	queueSize      = 64
	defaultTimeout = 5 * time.Second
	// drainTimeout bounds how long Close waits for the whole queue.
	drainTimeout = 5 * time.Second
)

// Logger observes the bus and forwards telemetry. It never publishes on
// the bus and never blocks the caller.
type Logger struct {
	sink    Sink
	timeout time.Duration
	drain   time.Duration

	// base parents every delivery; Close cancels it once the drain
	// deadline passes.
	base   context.Context
	cancel context.CancelFunc

	queue chan Record
	done  chan struct{}

	mu        sync.Mutex
	closed    bool
	current   string
	errLogged bool

	dropped atomic.Int64

	unsubscribe func()
}

// NewLogger starts a logger that delivers records from b to sink on a
// background worker.
func NewLogger(b *bus.Bus, sink Sink) *Logger {
	base, cancel := context.WithCancel(context.Background())
	l := &Logger{
		sink:    sink,
		timeout: defaultTimeout,
		drain:   drainTimeout,
		base:    base,
		cancel:  cancel,
		queue:   make(chan Record, queueSize),
		done:    make(chan struct{}),
	}
	l.unsubscribe = b.Subscribe(l.handle,
		bus.StepChanged, bus.ChoiceSelected,
		bus.RequestNext, bus.RequestPrevious, bus.RequestStartOver)

	go l.run()
	return l
}

func (l *Logger) handle(e bus.Event) {
	l.mu.Lock()
	if e.Kind == bus.StepChanged {
		l.current = e.Step.Name
	}
	current := l.current
	l.mu.Unlock()

	switch e.Kind {
	case bus.StepChanged:
		l.enqueue(Record{EventType: StepShown, Step: e.Step.Name})
		if e.Step.IsFinal() {
			l.enqueue(Record{EventType: FinalStepShown, Step: e.Step.Name})
		}
	case bus.ChoiceSelected:
		l.enqueue(Record{EventType: ChoiceSelected, Step: e.StepName, Choice: e.ChoiceID})
	case bus.RequestNext:
		l.enqueue(Record{EventType: WentForward, Step: current})
	case bus.RequestPrevious:
		l.enqueue(Record{EventType: WentBackward, Step: current})
	case bus.RequestStartOver:
		l.enqueue(Record{EventType: StartedOver, Step: current})
	}
}

// enqueue drops the record when the worker is behind or the logger is closed.
func (l *Logger) enqueue(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- r:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for r := range l.queue {
		l.deliver(r)
	}
}

func (l *Logger) deliver(r Record) {
	ctx, cancel := context.WithTimeout(l.base, l.timeout)
	defer cancel()

	if err := l.sink.Publish(ctx, r); err != nil {
		l.mu.Lock()
		first := !l.errLogged
		l.errLogged = true
		l.mu.Unlock()
		if first {
			log.Printf("analytics: publish %s failed: %v", r.EventType, err)
		}
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close detaches from the bus and waits for queued records to be
// delivered. Records still pending after the drain deadline are abandoned.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	if l.unsubscribe != nil {
		l.unsubscribe()
	}

	timer := time.NewTimer(l.drain)
	defer timer.Stop()
	select {
	case <-l.done:
	case <-timer.C:
		log.Printf("analytics: abandoning undelivered records after %s", l.drain)
		l.cancel()
		<-l.done
	}
	l.cancel()
}
