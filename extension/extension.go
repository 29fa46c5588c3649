// Package extension provides the Forge extension adapter for Launchpad.
//
// It implements the forge.Extension interface to integrate Launchpad
// into a Forge application with DI registration, lifecycle management
// and an optional scheduled reconciliation.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.launchpad" or
// "launchpad" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/config"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "launchpad"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token vesting and presale ledgers"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Launchpad as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *launchpad.Launchpad
	store      store.Store
	engineOpts []launchpad.Option

	auditor   *reconcile.Auditor
	scheduler *reconcile.Scheduler
	cancel    context.CancelFunc
}

// New creates a new Launchpad Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Launchpad instance.
// This is nil until Register is called.
func (e *Extension) Engine() *launchpad.Launchpad { return e.engine }

// Auditor returns the reconciliation auditor. This is nil until Register
// is called.
func (e *Extension) Auditor() *reconcile.Auditor { return e.auditor }

// Register implements [forge.Extension]. It loads configuration, opens the
// store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}
	ec := e.config.engineConfig()
	if e.store != nil {
		// A supplied store makes the driver settings irrelevant.
		ec.Store = config.StoreConfig{Driver: config.DriverMemory}
	}
	if err := ec.Validate(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.config.Store.Open(context.Background())
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = launchpad.New(e.store, e.buildEngineOpts()...)
	e.auditor = reconcile.NewAuditor(e.engine, reconcile.WithPageSize(e.config.Reconcile.PageSize))

	if err := vessel.Provide(fapp.Container(), func() (*launchpad.Launchpad, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*reconcile.Auditor, error) {
		return e.auditor, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("launchpad: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.config.Reconcile.Enabled {
		// The scheduler outlives Start's context.
		runCtx, cancel := context.WithCancel(context.Background())
		s, err := reconcile.NewScheduler(runCtx, e.auditor, e.config.Reconcile.Schedule)
		if err != nil {
			cancel()
			return err
		}
		e.scheduler, e.cancel = s, cancel
		s.Start()
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	var errs []error
	if e.scheduler != nil {
		errs = append(errs, e.scheduler.Stop(ctx))
		e.cancel()
		e.scheduler = nil
	}
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension]. A failed last reconciliation makes
// the extension unhealthy.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("launchpad: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.scheduler != nil {
		if r := e.scheduler.Last(); r != nil && !r.OK() {
			return errors.New("launchpad: last reconciliation reported " + r.Findings[0].Detail)
		}
	}
	return nil
}

// buildEngineOpts constructs launchpad.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []launchpad.Option {
	cfgOpts := e.config.engineConfig().Options()
	opts := make([]launchpad.Option, 0, len(cfgOpts)+len(e.engineOpts)+1)
	opts = append(opts, cfgOpts...)
	if e.config.DisableMigrate {
		opts = append(opts, launchpad.WithoutMigrate())
	}

	// Append any pass-through options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("launchpad: configuration is required but not found in config files; " +
				"ensure 'extensions.launchpad' or 'launchpad' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("launchpad: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("store_driver", e.config.Store.Driver),
		forge.F("reconcile_enabled", e.config.Reconcile.Enabled),
		forge.F("reconcile_schedule", e.config.Reconcile.Schedule),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.launchpad", "launchpad"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("launchpad: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("launchpad: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	if cfg.Reconcile.Schedule == "" {
		cfg.Reconcile.Schedule = defaults.Reconcile.Schedule
	}
	if cfg.Reconcile.PageSize == 0 {
		cfg.Reconcile.PageSize = defaults.Reconcile.PageSize
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.StrictVestingTotals {
		yamlConfig.StrictVestingTotals = true
	}
	if programmaticConfig.Reconcile.Enabled {
		yamlConfig.Reconcile.Enabled = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Store.Driver == "" {
		yamlConfig.Store = programmaticConfig.Store
	}
	if yamlConfig.Reconcile.Schedule == "" {
		yamlConfig.Reconcile.Schedule = programmaticConfig.Reconcile.Schedule
	}
	if len(yamlConfig.Addresses.Admins) == 0 {
		yamlConfig.Addresses.Admins = programmaticConfig.Addresses.Admins
	}
	for _, f := range []struct{ dst, src *string }{
		{&yamlConfig.Addresses.Vesting, &programmaticConfig.Addresses.Vesting},
		{&yamlConfig.Addresses.Presale, &programmaticConfig.Addresses.Presale},
		{&yamlConfig.Addresses.Token, &programmaticConfig.Addresses.Token},
		{&yamlConfig.Addresses.Recovery, &programmaticConfig.Addresses.Recovery},
	} {
		if *f.dst == "" {
			*f.dst = *f.src
		}
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.Reconcile.PageSize == 0 && programmaticConfig.Reconcile.PageSize != 0 {
		yamlConfig.Reconcile.PageSize = programmaticConfig.Reconcile.PageSize
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
