package adventure

import (
	"fmt"
	"strings"
)

// ValidationError collects every problem found in a definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid adventure: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks the authoring rules:
//   - at least one step, each with a unique non-empty name
//   - the first step is named "first"
//   - back, next and choice targets name existing steps
//   - choice values are non-empty and unique within a step
func (a *Adventure) Validate() error {
	verr := &ValidationError{}

	if len(a.Steps) == 0 {
		verr.add("no step in the adventure")
		return verr
	}

	names := make(map[string]struct{}, len(a.Steps))
	for i, s := range a.Steps {
		if s.Name == "" {
			verr.add("step %d has no name", i+1)
			continue
		}
		if _, dup := names[s.Name]; dup {
			verr.add("step name %q is not unique", s.Name)
			continue
		}
		names[s.Name] = struct{}{}
	}

	if a.Steps[0].Name != FirstStepName {
		verr.add("the first step name must be %q", FirstStepName)
	}

	exists := func(name string) bool {
		_, ok := names[name]
		return ok
	}

	for _, s := range a.Steps {
		if s.Back != "" && !exists(s.Back) {
			verr.add("step %q: back %q is not a valid step name", s.Name, s.Back)
		}
		if s.Next != "" && !exists(s.Next) {
			verr.add("step %q: next %q is not a valid step name", s.Name, s.Next)
		}

		values := make(map[string]struct{}, len(s.Choices))
		for _, c := range s.Choices {
			if c.Value == "" {
				verr.add("step %q: choice %q has no value", s.Name, c.Label)
				continue
			}
			if _, dup := values[c.Value]; dup {
				verr.add("step %q: choice value %q is not unique", s.Name, c.Value)
			}
			values[c.Value] = struct{}{}
			if c.Next != "" && !exists(c.Next) {
				verr.add("step %q: choice %q next %q is not a valid step name", s.Name, c.Value, c.Next)
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
