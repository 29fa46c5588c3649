package audithook

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/xraph/launchpad/event"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions sets which actions to audit.
// If not called, all actions are audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithDisabledActions sets which actions to skip.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = make(map[string]bool)
			for _, action := range AllActions() {
				e.enabled[action] = true
			}
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// AllActions returns every action the extension can record, sorted.
func AllActions() []string {
	actions := []string{ActionReconciled}
	for kind := range maps.Keys(classifications) {
		actions = append(actions, string(kind))
	}
	slices.Sort(actions)
	return actions
}

// Action names the audit action for a journal kind.
func Action(kind event.Kind) string { return string(kind) }
