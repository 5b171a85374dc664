package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// learner telemetry, reported by walkthrough clients
	"adventure.step-shown":       {},
	"adventure.final-step-shown": {},
	"adventure.choice-selected":  {},
	"adventure.went-forward":     {},
	"adventure.went-backward":    {},
	"adventure.started-over":     {},

	// server-side adventure lifecycle
	"adventure.progress": {},
	"adventure.reloaded": {},
	"adventure.saved":    {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
