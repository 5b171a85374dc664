// Package walkthrough assembles one learner-facing adventure instance from
// the bus, coordinator, presenter, chrome and event logger.
package walkthrough

import (
	"context"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/analytics"
	"github.com/AaronLay10/AdventureEngine/internal/bus"
	"github.com/AaronLay10/AdventureEngine/internal/chrome"
	"github.com/AaronLay10/AdventureEngine/internal/coordinator"
	"github.com/AaronLay10/AdventureEngine/internal/presenter"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// Snapshot is everything a host needs to draw the walkthrough.
type Snapshot struct {
	Step     presenter.View
	Controls chrome.Controls
	Failure  *step.FetchFailed
}

// Walkthrough is one wired instance. All components run on Loop.
type Walkthrough struct {
	Bus         *bus.Bus
	Loop        *Loop
	Coordinator *coordinator.Coordinator
	Presenter   *presenter.Presenter
	Chrome      *chrome.Chrome
	Logger      *analytics.Logger
}

// New wires a walkthrough against remote, reporting telemetry to sink.
// timeout bounds each remote operation; zero keeps the coordinator default.
func New(ctx context.Context, remote coordinator.Remote, sink analytics.Sink, timeout time.Duration) *Walkthrough {
	if sink == nil {
		sink = analytics.Discard
	}
	b := bus.New()
	loop := NewLoop(64)

	w := &Walkthrough{
		Bus:       b,
		Loop:      loop,
		Presenter: presenter.New(b),
		Chrome:    chrome.New(b),
		Logger:    analytics.NewLogger(b, sink),
	}
	w.Coordinator = coordinator.New(ctx, b, remote,
		coordinator.WithScheduler(loop),
		coordinator.WithTimeout(timeout),
	)
	return w
}

// Run shows the current step and processes work until ctx is done.
func (w *Walkthrough) Run(ctx context.Context) error {
	w.Loop.Post(w.Coordinator.ShowCurrentStep)
	return w.Loop.Run(ctx)
}

// Do runs fn on the loop.
func (w *Walkthrough) Do(fn func()) bool {
	return w.Loop.Post(fn)
}

// Snapshot reads the presenter and chrome. Call it on the loop.
func (w *Walkthrough) Snapshot() Snapshot {
	return Snapshot{
		Step:     w.Presenter.View(),
		Controls: w.Chrome.Controls(),
	}
}

// OnChange calls fn on the loop with a fresh snapshot whenever the
// rendering may have changed.
func (w *Walkthrough) OnChange(fn func(Snapshot)) func() {
	return w.Bus.Subscribe(func(e bus.Event) {
		s := w.Snapshot()
		if e.Kind == bus.FetchFailed {
			s.Failure = e.Failure
		}
		fn(s)
	}, bus.StepChanged, bus.ChoiceSelected, bus.FetchFailed, bus.RequestNext)
}

// Close detaches every component and flushes telemetry.
func (w *Walkthrough) Close() {
	w.Coordinator.Close()
	w.Presenter.Close()
	w.Chrome.Close()
	w.Logger.Close()
}
