package walkthrough

import (
	"context"

	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// Loop serializes all walkthrough work onto one goroutine. Remote calls
// run elsewhere and post their completion back to the loop.
type Loop struct {
	inbox   chan func()
	stopped chan struct{}
}

// NewLoop returns a loop whose inbox holds up to size pending closures.
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 16
	}
	return &Loop{
		inbox:   make(chan func(), size),
		stopped: make(chan struct{}),
	}
}

// Post queues fn for execution on the loop. It returns false once the
// loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Schedule runs call on its own goroutine and posts done back to the loop.
func (l *Loop) Schedule(call func() step.Outcome, done func(step.Outcome)) {
	go func() {
		out := call()
		l.Post(func() { done(out) })
	}()
}

// Run executes posted closures until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.inbox:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
