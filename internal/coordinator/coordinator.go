// Package coordinator owns step transitions: it turns intents into remote
// step operations and broadcasts the resulting step on the bus.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/bus"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// DefaultTimeout bounds every remote step operation.
const DefaultTimeout = 10 * time.Second

// Remote is the server side of the four step operations.
type Remote interface {
	FetchCurrent(ctx context.Context) step.Outcome
	FetchNext(ctx context.Context, payload step.Submission) step.Outcome
	FetchPrevious(ctx context.Context) step.Outcome
	Restart(ctx context.Context) step.Outcome
}

// Scheduler runs call off the caller's flow and hands its result to done.
// done must run on the same logical thread that owns the coordinator.
type Scheduler interface {
	Schedule(call func() step.Outcome, done func(step.Outcome))
}

// Inline runs call and done synchronously.
type Inline struct{}

func (Inline) Schedule(call func() step.Outcome, done func(step.Outcome)) {
	done(call())
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithScheduler overrides the Inline scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sched = s
		}
	}
}

// Coordinator mediates every transition of one walkthrough instance.
type Coordinator struct {
	ctx     context.Context
	bus     *bus.Bus
	remote  Remote
	sched   Scheduler
	timeout time.Duration

	mu        sync.RWMutex
	active    step.State
	hasActive bool

	unsubscribe func()
}

// New creates a coordinator and subscribes it to the intent events on b.
// ctx bounds every remote call for the lifetime of the walkthrough.
func New(ctx context.Context, b *bus.Bus, remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		ctx:     ctx,
		bus:     b,
		remote:  remote,
		sched:   Inline{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.unsubscribe = b.Subscribe(c.handleIntent, bus.RequestNext, bus.RequestPrevious, bus.RequestStartOver)
	return c
}

func (c *Coordinator) handleIntent(e bus.Event) {
	switch e.Kind {
	case bus.RequestNext:
		c.ShowNextStep()
	case bus.RequestPrevious:
		c.ShowPreviousStep()
	case bus.RequestStartOver:
		c.StartOver()
	}
}

// ShowCurrentStep fetches the step at the learner's server-side position.
func (c *Coordinator) ShowCurrentStep() {
	c.run(step.OpFetchCurrent, c.remote.FetchCurrent)
}

// ShowNextStep submits the pending input of the displayed step and advances.
func (c *Coordinator) ShowNextStep() {
	payload := c.bus.StepData()
	c.run(step.OpFetchNext, func(ctx context.Context) step.Outcome {
		return c.remote.FetchNext(ctx, payload)
	})
}

// ShowPreviousStep moves to the position the server considers previous.
func (c *Coordinator) ShowPreviousStep() {
	c.run(step.OpFetchPrevious, c.remote.FetchPrevious)
}

// StartOver resets the learner to the start of the adventure.
func (c *Coordinator) StartOver() {
	c.run(step.OpRestart, c.remote.Restart)
}

// Active returns the last broadcast step, if any.
func (c *Coordinator) Active() (step.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active, c.hasActive
}

// Close detaches the coordinator from the bus.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Coordinator) run(op step.Op, fetch func(context.Context) step.Outcome) {
	c.sched.Schedule(
		func() step.Outcome { return c.fetch(op, fetch) },
		func(out step.Outcome) { c.apply(op, out) },
	)
}

// fetch runs one remote call under the timeout. A call that ignores its
// context still yields a failure once the deadline passes.
func (c *Coordinator) fetch(op step.Op, fn func(context.Context) step.Outcome) step.Outcome {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	result := make(chan step.Outcome, 1)
	go func() {
		result <- fn(ctx)
	}()

	select {
	case out := <-result:
		return out
	case <-ctx.Done():
		msg := fmt.Sprintf("timed out after %s", c.timeout)
		if ctx.Err() == context.Canceled {
			msg = "cancelled"
		}
		return step.Failure(&step.FetchFailed{
			Op:      op,
			Origin:  step.TransportFailure,
			Message: msg,
			Err:     ctx.Err(),
		})
	}
}

func (c *Coordinator) apply(op step.Op, out step.Outcome) {
	switch out.Kind {
	case step.Succeeded:
		c.mu.Lock()
		c.active = out.State
		c.hasActive = true
		c.mu.Unlock()
		c.bus.Publish(bus.StepChangedEvent(out.State))
	default:
		ff := out.Err()
		if ff.Op == "" {
			ff.Op = op
		}
		log.Printf("coordinator: %v", ff)
		c.bus.Publish(bus.FetchFailedEvent(ff))
	}
}
