package extension

import (
	"github.com/xraph/launchpad"
	audithook "github.com/xraph/launchpad/audit_hook"
	"github.com/xraph/launchpad/observability"
	"github.com/xraph/launchpad/plugin"
	"github.com/xraph/launchpad/store"
)

// Option configures the Launchpad Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over the
// configured driver and is the only way to use the mongo backend.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLaunchpadOption passes a launchpad.Option through to the underlying engine.
func WithLaunchpadOption(opt launchpad.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a launchpad plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, launchpad.WithPlugin(p))
	}
}

// WithAuditRecorder registers the audit hook writing to r.
func WithAuditRecorder(r audithook.Recorder, opts ...audithook.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, launchpad.WithPlugin(audithook.New(r, opts...)))
	}
}

// WithMetrics registers the metrics plugin on factory.
func WithMetrics(factory observability.MetricFactory) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, launchpad.WithPlugin(observability.NewMetricsExtension(factory)))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate skips store migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithReconcile enables the scheduled audit on spec.
func WithReconcile(spec string) Option {
	return func(e *Extension) {
		e.config.Reconcile.Enabled = true
		e.config.Reconcile.Schedule = spec
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
