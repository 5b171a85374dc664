// Package step holds the client-side view of one adventure step and the
// result type every remote step operation returns.
package step

// State is an immutable snapshot of a step as returned by the server.
// It is replaced wholesale on every transition and shared by value;
// nothing downstream of the coordinator mutates it.
type State struct {
	Name          string
	HasBackStep   bool
	HasNextStep   bool
	CanStartOver  bool
	HasChoices    bool
	StudentChoice string
	Content       Content
}

// Content is the renderable payload of a step. The coordinator passes it
// through untouched.
type Content struct {
	HTML     string
	Markdown string
	Choices  []Choice
}

// Choice is one selectable option of a step that requires input.
type Choice struct {
	Value string
	Label string
}

// IsFinal reports whether the step offers no way forward.
func (s State) IsFinal() bool {
	return !s.HasNextStep && !s.HasChoices
}

// HasOption reports whether value is one of the step's declared options.
// Steps whose content does not enumerate options accept any value.
func (s State) HasOption(value string) bool {
	if len(s.Content.Choices) == 0 {
		return true
	}
	for _, c := range s.Content.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Submission is the payload of a fetch-next operation.
type Submission struct {
	Choice string `json:"choice,omitempty"`
}

// IsEmpty reports whether no input is pending.
func (s Submission) IsEmpty() bool {
	return s.Choice == ""
}
