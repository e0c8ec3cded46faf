// Package config resolves fscache settings from defaults, an optional YAML
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the configuration and cache directories.
const AppName = "fscache"

// EnvPrefix prefixes every environment variable, e.g. FSCACHE_WORKERS.
const EnvPrefix = "FSCACHE"

// DefaultControlVar is consulted for the cache mode when no caller-named
// variable is set.
const DefaultControlVar = EnvPrefix + "_CACHE"

// Store backends.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
)

// Walker engines.
const (
	WalkerStack    = "stack"
	WalkerFastwalk = "fastwalk"
)

// Defaults.
const (
	DefaultName    = "cache"
	DefaultWorkers = 60
	DefaultWindow  = 10 * time.Millisecond
)

var (
	// ErrInvalidStore is returned for an unknown store backend.
	ErrInvalidStore = errors.New("invalid store backend")
	// ErrInvalidWalker is returned for an unknown walker engine.
	ErrInvalidWalker = errors.New("invalid walker")
)

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the resolved configuration.
type Config struct {
	// Cache is the raw control value: "", "clear" or "ignore". It is not
	// validated here.
	Cache   string        `mapstructure:"cache"`
	Dir     string        `mapstructure:"dir"`
	Store   string        `mapstructure:"store"`
	Walker  string        `mapstructure:"walker"`
	Workers int           `mapstructure:"workers"`
	Window  time.Duration `mapstructure:"window"`
	Tokens  []string      `mapstructure:"tokens"`
	Log     LogConfig     `mapstructure:"log"`

	// ControlVar is the environment variable the control value was read
	// from, for diagnostics.
	ControlVar string `mapstructure:"-"`
}

// Options selects what Load reads.
type Options struct {
	// Name is the cache name. The default directory is
	// $XDG_CACHE_HOME/fscache/<Name>.
	Name string

	// EnvVar, when set and present in the environment, overrides
	// FSCACHE_CACHE as the source of the control value.
	EnvVar string

	// ConfigFile replaces the default config file search.
	ConfigFile string
}

// Load resolves the configuration. Config file locations (in order of
// precedence):
//   - Options.ConfigFile
//   - $XDG_CONFIG_HOME/fscache/config.yaml
//   - each of $XDG_CONFIG_DIRS/fscache/config.yaml
//
// A missing file is not an error. Environment variables are prefixed with
// FSCACHE_ (e.g. FSCACHE_WORKERS, FSCACHE_LOG_LEVEL).
func Load(opts Options) (*Config, error) {
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
		for _, dir := range xdg.ConfigDirs {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	name := opts.Name
	if name == "" {
		name = DefaultName
	}

	v.SetDefault("cache", "")
	v.SetDefault("dir", DefaultDir(name))
	v.SetDefault("store", StoreFile)
	v.SetDefault("walker", WalkerStack)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("window", DefaultWindow)
	v.SetDefault("tokens", []string{})
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	controlVar := DefaultControlVar
	if opts.EnvVar != "" {
		if _, ok := os.LookupEnv(opts.EnvVar); ok {
			controlVar = opts.EnvVar
		}
	}
	if err := v.BindEnv("cache", controlVar); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", controlVar, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ControlVar = controlVar

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the enumerated settings. The control value is left to
// the caller, which warns about unknown values instead of failing.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreBadger:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store)
	}
	switch c.Walker {
	case WalkerStack, WalkerFastwalk:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidWalker, c.Walker)
	}
	return nil
}

// DefaultDir returns the default store directory for a named cache.
func DefaultDir(name string) string {
	if name == "" {
		name = DefaultName
	}
	return filepath.Join(xdg.CacheHome, AppName, name)
}
