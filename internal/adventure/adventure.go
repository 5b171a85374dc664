// Package adventure is the server side of a step adventure: definitions,
// per-learner progress and the four step operations.
package adventure

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FirstStepName is the required name of the entry step.
const FirstStepName = "first"

// Adventure is the top-level definition loaded from YAML.
type Adventure struct {
	Version int    `yaml:"version"`
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Steps   []Step `yaml:"steps"`
}

// Step is one unit of content. Back names the step a learner returns to;
// Next overrides document order when advancing.
type Step struct {
	Name    string   `yaml:"name"`
	Content string   `yaml:"content"`
	Back    string   `yaml:"back,omitempty"`
	Next    string   `yaml:"next,omitempty"`
	Choices []Choice `yaml:"choices,omitempty"`
}

// Choice is one option of a step that requires input. Next, when set,
// branches to the named step.
type Choice struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Next  string `yaml:"next,omitempty"`
}

// HasChoices reports whether the step requires input before advancing.
func (s *Step) HasChoices() bool {
	return len(s.Choices) > 0
}

// Choice returns the option with the given value.
func (s *Step) Choice(value string) (*Choice, bool) {
	for i := range s.Choices {
		if s.Choices[i].Value == value {
			return &s.Choices[i], true
		}
	}
	return nil, false
}

// Step returns the step with the given name.
func (a *Adventure) Step(name string) (*Step, bool) {
	i := a.index(name)
	if i < 0 {
		return nil, false
	}
	return &a.Steps[i], true
}

func (a *Adventure) index(name string) int {
	for i := range a.Steps {
		if a.Steps[i].Name == name {
			return i
		}
	}
	return -1
}

// successor returns the step that follows name when no choice branches.
func (a *Adventure) successor(name string) (*Step, bool) {
	i := a.index(name)
	if i < 0 {
		return nil, false
	}
	if next := a.Steps[i].Next; next != "" {
		return a.Step(next)
	}
	if i+1 < len(a.Steps) {
		return &a.Steps[i+1], true
	}
	return nil, false
}

// Parse decodes and validates a YAML definition.
func Parse(data []byte) (*Adventure, error) {
	var a Adventure
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse adventure YAML: %w", err)
	}

	if a.Version != 1 {
		return nil, fmt.Errorf("unsupported adventure version: %d", a.Version)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Adventure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read adventure file: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the definition back to YAML.
func (a *Adventure) Marshal() ([]byte, error) {
	return yaml.Marshal(a)
}
