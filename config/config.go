// Package config loads standalone Launchpad configuration from a YAML file
// with LAUNCHPAD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/reconcile"
)

// EnvPrefix prefixes every environment override, e.g. LAUNCHPAD_STORE_DRIVER.
const EnvPrefix = "LAUNCHPAD"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverMongo    = "mongo"
)

// Config holds all standalone configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"     json:"store"`
	Addresses AddressConfig   `mapstructure:"addresses" yaml:"addresses" json:"addresses"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile" json:"reconcile"`
	Log       LogConfig       `mapstructure:"log"       yaml:"log"       json:"log"`

	// StrictVestingTotals keeps the TGE cut inside stored totals when
	// amounts are updated and extends schedules by the purchased amount.
	StrictVestingTotals bool `mapstructure:"strict_vesting_totals" yaml:"strict_vesting_totals" json:"strict_vesting_totals"`

	// PluginTimeout bounds each plugin hook call.
	PluginTimeout time.Duration `mapstructure:"plugin_timeout" yaml:"plugin_timeout" json:"plugin_timeout"`
}

// StoreConfig selects and locates the backend. Path is used by sqlite and
// badger, DSN by postgres.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`
	Path   string `mapstructure:"path"   yaml:"path"   json:"path,omitempty"`
	DSN    string `mapstructure:"dsn"    yaml:"dsn"    json:"dsn,omitempty"`
}

// AddressConfig holds hex addresses for the engine's fixed parties.
type AddressConfig struct {
	Admins   []string `mapstructure:"admins"   yaml:"admins"   json:"admins"`
	Vesting  string   `mapstructure:"vesting"  yaml:"vesting"  json:"vesting"`
	Presale  string   `mapstructure:"presale"  yaml:"presale"  json:"presale"`
	Token    string   `mapstructure:"token"    yaml:"token"    json:"token"`
	Recovery string   `mapstructure:"recovery" yaml:"recovery" json:"recovery"`
}

type ReconcileConfig struct {
	Enabled  bool   `mapstructure:"enabled"   yaml:"enabled"   json:"enabled"`
	Schedule string `mapstructure:"schedule"  yaml:"schedule"  json:"schedule"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size" json:"page_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "launchpad.db",
		},
		Addresses: AddressConfig{Admins: []string{}},
		Reconcile: ReconcileConfig{
			Schedule: reconcile.DefaultSpec,
			PageSize: reconcile.DefaultPageSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		PluginTimeout: 5 * time.Second,
	}
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides. A missing file is an error; an empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("addresses.admins", d.Addresses.Admins)
	v.SetDefault("addresses.vesting", d.Addresses.Vesting)
	v.SetDefault("addresses.presale", d.Addresses.Presale)
	v.SetDefault("addresses.token", d.Addresses.Token)
	v.SetDefault("addresses.recovery", d.Addresses.Recovery)
	v.SetDefault("reconcile.enabled", d.Reconcile.Enabled)
	v.SetDefault("reconcile.schedule", d.Reconcile.Schedule)
	v.SetDefault("reconcile.page_size", d.Reconcile.PageSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("strict_vesting_totals", d.StrictVestingTotals)
	v.SetDefault("plugin_timeout", d.PluginTimeout)
}

// Validate checks the configuration, joining every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverBadger:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("config: store.path is required for %s", c.Store.Driver))
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("config: store.dsn is required for postgres"))
		}
	case DriverMongo:
		errs = append(errs, errors.New("config: the mongo store is only available through extension.WithStore"))
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.driver %q", c.Store.Driver))
	}

	for i, a := range c.Addresses.Admins {
		if !common.IsHexAddress(a) {
			errs = append(errs, fmt.Errorf("config: addresses.admins[%d]: invalid address %q", i, a))
		}
	}
	for field, a := range map[string]string{
		"vesting":  c.Addresses.Vesting,
		"presale":  c.Addresses.Presale,
		"token":    c.Addresses.Token,
		"recovery": c.Addresses.Recovery,
	} {
		if a != "" && !common.IsHexAddress(a) {
			errs = append(errs, fmt.Errorf("config: addresses.%s: invalid address %q", field, a))
		}
	}

	if c.Reconcile.Enabled {
		if err := reconcile.ValidateSpec(c.Reconcile.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: reconcile.schedule: %w", err))
		}
	}
	if c.Reconcile.PageSize < 0 {
		errs = append(errs, errors.New("config: reconcile.page_size must not be negative"))
	}
	if c.PluginTimeout < 0 {
		errs = append(errs, errors.New("config: plugin_timeout must not be negative"))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Options converts the address and engine settings into launchpad options.
// Call Validate first; unset addresses are left to the engine's defaults.
func (c *Config) Options() []launchpad.Option {
	var opts []launchpad.Option

	admins := make([]common.Address, 0, len(c.Addresses.Admins))
	for _, a := range c.Addresses.Admins {
		admins = append(admins, common.HexToAddress(a))
	}
	if len(admins) > 0 {
		opts = append(opts, launchpad.WithAdmin(admins...))
	}
	if c.Addresses.Vesting != "" {
		opts = append(opts, launchpad.WithVestingAddress(common.HexToAddress(c.Addresses.Vesting)))
	}
	if c.Addresses.Presale != "" {
		opts = append(opts, launchpad.WithPresaleAddress(common.HexToAddress(c.Addresses.Presale)))
	}
	if c.Addresses.Token != "" {
		opts = append(opts, launchpad.WithSaleToken(common.HexToAddress(c.Addresses.Token)))
	}
	if c.Addresses.Recovery != "" {
		opts = append(opts, launchpad.WithRecoveryAddress(common.HexToAddress(c.Addresses.Recovery)))
	}
	if c.StrictVestingTotals {
		opts = append(opts, launchpad.WithStrictVestingTotals())
	}
	if c.PluginTimeout > 0 {
		opts = append(opts, launchpad.WithPluginTimeout(c.PluginTimeout))
	}
	return opts
}

// Logger builds the slog logger described by c.Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Write renders c as YAML to path, creating or truncating it.
func Write(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
