// Package chrome derives the back/next/start-over controls from the active
// step and turns clicks into intent events.
package chrome

import (
	"sync"

	"github.com/AaronLay10/AdventureEngine/internal/bus"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// Button is the rendered state of one control.
type Button struct {
	Visible bool
	Enabled bool
}

// Clickable reports whether a click on the button does anything.
func (b Button) Clickable() bool {
	return b.Visible && b.Enabled
}

// Controls is the full navigation chrome.
type Controls struct {
	Back      Button
	Next      Button
	StartOver Button
}

// Derive computes the controls for s. hasPendingChoice is true once a
// choice has been selected for s since it was shown.
func Derive(s step.State, hasPendingChoice bool) Controls {
	nextVisible := s.HasNextStep || s.HasChoices
	nextEnabled := !s.HasChoices || s.StudentChoice != "" || hasPendingChoice

	return Controls{
		Back:      Button{Visible: s.HasBackStep, Enabled: s.HasBackStep},
		Next:      Button{Visible: nextVisible, Enabled: nextVisible && nextEnabled},
		StartOver: Button{Visible: s.CanStartOver, Enabled: s.CanStartOver},
	}
}

// Chrome tracks the inputs of Derive for the displayed step.
//
// Next disables itself when clicked and stays disabled until the next step
// is broadcast or the fetch-next request fails. That failure re-enables it
// so the learner can retry; failures of other operations leave it disabled.
type Chrome struct {
	bus *bus.Bus

	mu         sync.RWMutex
	current    step.State
	shown      bool
	choiceMade bool
	submitting bool
	controls   Controls

	unsubscribe func()
}

// New creates a chrome subscribed to b.
func New(b *bus.Bus) *Chrome {
	c := &Chrome{bus: b}
	c.unsubscribe = b.Subscribe(c.handle, bus.StepChanged, bus.ChoiceSelected, bus.FetchFailed)
	return c
}

func (c *Chrome) handle(e bus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Kind {
	case bus.StepChanged:
		c.current = e.Step
		c.shown = true
		c.choiceMade = false
		c.submitting = false
	case bus.ChoiceSelected:
		if !c.shown || e.StepName != c.current.Name {
			return
		}
		c.choiceMade = true
	case bus.FetchFailed:
		// Only the failure of the next request itself ends the submission.
		if e.Failure == nil || e.Failure.Op != step.OpFetchNext {
			return
		}
		c.submitting = false
	}
	c.render()
}

// render recomputes every control from scratch. Callers hold mu.
func (c *Chrome) render() {
	if !c.shown {
		c.controls = Controls{}
		return
	}
	controls := Derive(c.current, c.choiceMade)
	if c.submitting {
		controls.Next.Enabled = false
	}
	c.controls = controls
}

// Controls returns the current rendering.
func (c *Chrome) Controls() Controls {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.controls
}

// ClickNext emits request-next if Next is clickable and disables Next.
func (c *Chrome) ClickNext() bool {
	c.mu.Lock()
	if !c.controls.Next.Clickable() {
		c.mu.Unlock()
		return false
	}
	c.submitting = true
	c.render()
	c.mu.Unlock()

	c.bus.Publish(bus.Intent(bus.RequestNext))
	return true
}

// ClickBack emits request-previous if Back is clickable.
func (c *Chrome) ClickBack() bool {
	return c.click(func(ctl Controls) Button { return ctl.Back }, bus.RequestPrevious)
}

// ClickStartOver emits request-start-over if Start Over is clickable.
func (c *Chrome) ClickStartOver() bool {
	return c.click(func(ctl Controls) Button { return ctl.StartOver }, bus.RequestStartOver)
}

func (c *Chrome) click(button func(Controls) Button, intent bus.Kind) bool {
	c.mu.RLock()
	ok := button(c.controls).Clickable()
	c.mu.RUnlock()
	if !ok {
		return false
	}
	c.bus.Publish(bus.Intent(intent))
	return true
}

// Close detaches the chrome from the bus.
func (c *Chrome) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}
