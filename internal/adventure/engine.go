package adventure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// ErrNoSteps is returned when the loaded adventure has no steps.
var ErrNoSteps = errors.New("no step in the adventure")

// NoNextStepError is returned by Next at the end of the adventure.
type NoNextStepError struct {
	Current string
}

func (e *NoNextStepError) Error() string {
	return "no next step, current_step: " + e.Current
}

// InvalidChoiceError is returned by Next when the submitted choice does
// not match an option of the current step.
type InvalidChoiceError struct {
	Step   string
	Choice string
}

func (e *InvalidChoiceError) Error() string {
	if e.Choice == "" {
		return fmt.Sprintf("step %q requires a choice", e.Step)
	}
	return fmt.Sprintf("invalid choice %q for step %q", e.Choice, e.Step)
}

// View is a rendered step for one learner.
type View struct {
	Name          string
	HasBackStep   bool
	HasNextStep   bool
	CanStartOver  bool
	HasChoices    bool
	StudentChoice string
	HTML          string
	Markdown      string
	Choices       []Choice
}

// Wire converts the view into the handler response shape.
func (v View) Wire() *step.WireStep {
	w := &step.WireStep{
		Name:          v.Name,
		HasBackStep:   v.HasBackStep,
		HasNextStep:   v.HasNextStep,
		CanStartOver:  v.CanStartOver,
		HasChoices:    v.HasChoices,
		StudentChoice: v.StudentChoice,
		HTML:          v.HTML,
		Markdown:      v.Markdown,
	}
	for _, c := range v.Choices {
		w.Choices = append(w.Choices, step.WireChoice{Value: c.Value, Label: c.Label})
	}
	return w
}

// Engine runs the step operations against the active definition.
type Engine struct {
	mu       sync.Mutex
	adv      *Adventure
	store    ProgressStore
	renderer Renderer
}

// NewEngine returns an engine over a validated adventure.
func NewEngine(a *Adventure, store ProgressStore, r Renderer) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	if r == nil {
		r = NewMarkdown()
	}
	return &Engine{adv: a, store: store, renderer: r}
}

// Adventure returns the active definition.
func (e *Engine) Adventure() *Adventure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adv
}

// HasStep reports whether the active definition contains name.
func (e *Engine) HasStep(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.adv == nil {
		return false
	}
	_, ok := e.adv.Step(name)
	return ok
}

// Swap replaces the active definition. Learners positioned on a step that
// no longer exists resume at the first step.
func (e *Engine) Swap(a *Adventure) {
	e.mu.Lock()
	e.adv = a
	e.mu.Unlock()
}

// Current renders the learner's current step.
func (e *Engine) Current(ctx context.Context, learnerID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, p, err := e.position(ctx, learnerID)
	if err != nil {
		return View{}, err
	}
	return e.render(cur, p)
}

// Next records choice for the current step and advances.
func (e *Engine) Next(ctx context.Context, learnerID, choice string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, p, err := e.position(ctx, learnerID)
	if err != nil {
		return View{}, err
	}

	var target *Step
	var ok bool
	if cur.HasChoices() {
		c, found := cur.Choice(choice)
		if choice == "" || !found {
			return View{}, &InvalidChoiceError{Step: cur.Name, Choice: choice}
		}
		if p.Choices == nil {
			p.Choices = make(map[string]string)
		}
		p.Choices[cur.Name] = choice
		if c.Next != "" {
			target, ok = e.adv.Step(c.Next)
		} else {
			target, ok = e.adv.successor(cur.Name)
		}
	} else {
		target, ok = e.adv.successor(cur.Name)
	}
	if !ok {
		return View{}, &NoNextStepError{Current: cur.Name}
	}

	p.StepName = target.Name
	if err := e.save(ctx, learnerID, p); err != nil {
		return View{}, err
	}
	e.emitProgress(learnerID, "next", cur.Name, target.Name, choice)
	return e.render(target, p)
}

// Previous moves to the current step's back step, when it has one.
func (e *Engine) Previous(ctx context.Context, learnerID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, p, err := e.position(ctx, learnerID)
	if err != nil {
		return View{}, err
	}
	if cur.Back == "" {
		return e.render(cur, p)
	}

	back, ok := e.adv.Step(cur.Back)
	if !ok {
		return e.render(cur, p)
	}
	p.StepName = back.Name
	if err := e.save(ctx, learnerID, p); err != nil {
		return View{}, err
	}
	e.emitProgress(learnerID, "previous", cur.Name, back.Name, "")
	return e.render(back, p)
}

// StartOver returns the learner to the first step and forgets their choices.
func (e *Engine) StartOver(ctx context.Context, learnerID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, _, err := e.position(ctx, learnerID)
	if err != nil {
		return View{}, err
	}
	first := &e.adv.Steps[0]
	p := Progress{StepName: first.Name}
	if err := e.save(ctx, learnerID, p); err != nil {
		return View{}, err
	}
	e.emitProgress(learnerID, "start_over", cur.Name, first.Name, "")
	return e.render(first, p)
}

// position loads the learner's progress and resolves the current step.
// Callers hold mu.
func (e *Engine) position(ctx context.Context, learnerID string) (*Step, Progress, error) {
	if e.adv == nil || len(e.adv.Steps) == 0 {
		return nil, Progress{}, ErrNoSteps
	}

	p, err := e.store.Load(ctx, e.adv.ID, learnerID)
	if err != nil {
		return nil, Progress{}, fmt.Errorf("failed to load progress: %w", err)
	}

	cur, ok := e.adv.Step(p.StepName)
	if !ok {
		cur = &e.adv.Steps[0]
		p.StepName = cur.Name
	}
	return cur, p, nil
}

func (e *Engine) save(ctx context.Context, learnerID string, p Progress) error {
	if err := e.store.Save(ctx, e.adv.ID, learnerID, p); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (e *Engine) render(s *Step, p Progress) (View, error) {
	html, err := e.renderer.Render(s.Content)
	if err != nil {
		return View{}, err
	}
	_, hasSuccessor := e.adv.successor(s.Name)

	return View{
		Name:          s.Name,
		HasBackStep:   s.Back != "",
		HasNextStep:   !s.HasChoices() && hasSuccessor,
		CanStartOver:  s.Name != e.adv.Steps[0].Name,
		HasChoices:    s.HasChoices(),
		StudentChoice: p.Choices[s.Name],
		HTML:          html,
		Markdown:      s.Content,
		Choices:       append([]Choice(nil), s.Choices...),
	}, nil
}

func (e *Engine) emitProgress(learnerID, action, from, to, choice string) {
	fields := map[string]interface{}{
		"adventure_id": e.adv.ID,
		"learner_id":   learnerID,
		"action":       action,
		"from":         from,
		"to":           to,
	}
	if choice != "" {
		fields["choice"] = choice
	}
	events.Emit("info", "adventure.progress", "", fields)
}
