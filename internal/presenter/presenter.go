// Package presenter renders the active step and tracks the learner's
// tentative choice for it.
package presenter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AaronLay10/AdventureEngine/internal/bus"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

var (
	// ErrNoStep is returned by Select before any step has been shown.
	ErrNoStep = errors.New("no step on display")
	// ErrNoChoices is returned by Select on a step that takes no input.
	ErrNoChoices = errors.New("step has no choices")
)

// Option is one selectable entry of the rendered step.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// View is a snapshot of what the presenter shows.
type View struct {
	StepName string
	HTML     string
	Markdown string
	Options  []Option
	Shown    bool
}

// Presenter holds the pending choice of the displayed step.
type Presenter struct {
	bus *bus.Bus

	mu      sync.RWMutex
	current step.State
	shown   bool
	pending string

	unsubscribe func()
}

// New creates a presenter subscribed to step changes on b.
func New(b *bus.Bus) *Presenter {
	p := &Presenter{bus: b}
	p.unsubscribe = b.Subscribe(p.onStepChanged, bus.StepChanged)
	return p
}

func (p *Presenter) onStepChanged(e bus.Event) {
	p.mu.Lock()
	p.current = e.Step
	p.shown = true
	p.pending = ""
	revisit := e.Step.HasChoices && e.Step.StudentChoice != ""
	if revisit {
		p.pending = e.Step.StudentChoice
	}
	p.mu.Unlock()

	p.bus.Bind(p)

	if revisit {
		p.bus.Publish(bus.ChoiceSelectedEvent(e.Step.StudentChoice, e.Step.Name))
	}
}

// Select records value as the pending choice and announces it. It never
// advances the step.
func (p *Presenter) Select(value string) error {
	p.mu.Lock()
	if !p.shown {
		p.mu.Unlock()
		return ErrNoStep
	}
	if !p.current.HasChoices {
		p.mu.Unlock()
		return ErrNoChoices
	}
	if value == "" || !p.current.HasOption(value) {
		p.mu.Unlock()
		return fmt.Errorf("unknown option %q for step %q", value, p.current.Name)
	}
	p.pending = value
	name := p.current.Name
	p.mu.Unlock()

	p.bus.Publish(bus.ChoiceSelectedEvent(value, name))
	return nil
}

// StepData answers the bus stepData query.
func (p *Presenter) StepData() step.Submission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return step.Submission{Choice: p.pending}
}

// Pending returns the tentative choice, if any.
func (p *Presenter) Pending() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pending
}

// View returns a snapshot for rendering.
func (p *Presenter) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v := View{
		StepName: p.current.Name,
		HTML:     p.current.Content.HTML,
		Markdown: p.current.Content.Markdown,
		Shown:    p.shown,
	}
	for _, c := range p.current.Content.Choices {
		v.Options = append(v.Options, Option{
			Value:    c.Value,
			Label:    c.Label,
			Selected: c.Value == p.pending,
		})
	}
	return v
}

// Close detaches the presenter from the bus.
func (p *Presenter) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}
