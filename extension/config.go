package extension

import (
	"time"

	"github.com/xraph/launchpad/config"
	"github.com/xraph/launchpad/reconcile"
)

// Config holds the Launchpad extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.launchpad" or "launchpad" keys).
type Config struct {
	// DisableMigrate skips store migration on start. The engine still
	// validates its addresses and initializes plugins.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Store selects the backend when none was supplied with WithStore
	// (default: memory).
	Store config.StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// Addresses are the engine's fixed parties in hex.
	Addresses config.AddressConfig `json:"addresses" mapstructure:"addresses" yaml:"addresses"`

	// Reconcile controls the scheduled invariant audit.
	Reconcile config.ReconcileConfig `json:"reconcile" mapstructure:"reconcile" yaml:"reconcile"`

	StrictVestingTotals bool `json:"strict_vesting_totals" mapstructure:"strict_vesting_totals" yaml:"strict_vesting_totals"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: config.StoreConfig{Driver: config.DriverMemory},
		Reconcile: config.ReconcileConfig{
			Schedule: reconcile.DefaultSpec,
			PageSize: reconcile.DefaultPageSize,
		},
		PluginTimeout: 5 * time.Second,
	}
}

// engineConfig views c as a standalone config so its address and engine
// settings share one translation into launchpad options.
func (c Config) engineConfig() *config.Config {
	return &config.Config{
		Store:               c.Store,
		Addresses:           c.Addresses,
		Reconcile:           c.Reconcile,
		Log:                 config.Default().Log,
		StrictVestingTotals: c.StrictVestingTotals,
		PluginTimeout:       c.PluginTimeout,
	}
}
