package step

import (
	"encoding/json"
	"strings"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Envelope is the response shape of every step handler.
type Envelope struct {
	Result  string    `json:"result"`
	Message string    `json:"message,omitempty"`
	Step    *WireStep `json:"step,omitempty"`
}

// WireStep carries the step fields on the wire.
type WireStep struct {
	Name          string       `json:"name"`
	HasBackStep   bool         `json:"has_back_step"`
	HasNextStep   bool         `json:"has_next_step"`
	CanStartOver  bool         `json:"can_start_over"`
	HasChoices    bool         `json:"has_choices"`
	StudentChoice string       `json:"student_choice,omitempty"`
	HTML          string       `json:"html"`
	Markdown      string       `json:"markdown,omitempty"`
	Choices       []WireChoice `json:"choices,omitempty"`
}

// WireChoice is one option on the wire.
type WireChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// State converts the wire form into an immutable State.
func (w WireStep) State() State {
	var choices []Choice
	if len(w.Choices) > 0 {
		choices = make([]Choice, len(w.Choices))
		for i, c := range w.Choices {
			choices[i] = Choice{Value: c.Value, Label: c.Label}
		}
	}
	return State{
		Name:          w.Name,
		HasBackStep:   w.HasBackStep,
		HasNextStep:   w.HasNextStep,
		CanStartOver:  w.CanStartOver,
		HasChoices:    w.HasChoices,
		StudentChoice: w.StudentChoice,
		Content: Content{
			HTML:     w.HTML,
			Markdown: w.Markdown,
			Choices:  choices,
		},
	}
}

// Decode parses a handler response body into an Outcome.
func Decode(op Op, body []byte) Outcome {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Failure(&FetchFailed{Op: op, Origin: ServerError, Message: "malformed response", Err: err})
	}

	switch env.Result {
	case ResultSuccess:
		if env.Step == nil {
			return Failure(NewServerError(op, "success response without step"))
		}
		return Success(env.Step.State())
	case ResultError:
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "server reported an error"
		}
		return Failure(NewServerError(op, msg))
	default:
		return Failure(NewServerError(op, "unexpected result: "+env.Result))
	}
}
