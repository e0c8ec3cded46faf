package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/fscache"
	"github.com/gophersatwork/fscache/internal/config"
	"github.com/gophersatwork/fscache/internal/logging"
)

var (
	cfgFile   string
	cacheName string
	envVar    string
	workers   int
	walker    string
	verbose   bool

	rootCmd = &cobra.Command{
		Use:   "fscache",
		Short: "Inspect filesystem fingerprints and the fscache result store",
		Long: `fscache caches function results keyed on the observed state of files and
directory trees. This tool shows the fingerprints the cache would use and
manages the stored results.

Examples:
  fscache fingerprint ./data        # Fingerprint tuple and cache decision
  fscache walk -l ./data            # Every file fingerprint under a tree
  fscache key --func load ./data    # Key hash a memoized call would use
  fscache cache stats               # Entries in the store`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fscache/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheName, "name", "", "cache name (default: cache)")
	rootCmd.PersistentFlags().StringVar(&envVar, "envvar", "", "environment variable holding the cache mode (default: FSCACHE_CACHE)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "override walker goroutines (0=config)")
	rootCmd.PersistentFlags().StringVar(&walker, "walker", "", "walker engine: stack or fastwalk (default: config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Name:       cacheName,
		EnvVar:     envVar,
		ConfigFile: cfgFile,
	})
	if err != nil {
		return nil, err
	}

	if workers > 0 {
		cfg.Workers = workers
	}
	if walker != "" {
		cfg.Walker = walker
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// newWalker builds the configured walker over the local disk.
func newWalker(cfg *config.Config, logger *log.Logger) fscache.TreeWalker {
	opts := []fscache.WalkerOption{
		fscache.WithWalkWorkers(cfg.Workers),
		fscache.WithWalkLogger(logger),
	}
	if cfg.Walker == config.WalkerFastwalk {
		return fscache.NewFastWalker(opts...)
	}
	return fscache.NewWalker(afero.NewOsFs(), opts...)
}

// openCache opens the configured cache.
func openCache() (*fscache.Cache, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	c, err := fscache.OpenConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, cfg, nil
}
