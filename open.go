package fscache

import (
	"errors"
	"fmt"

	"github.com/gophersatwork/fscache/badgerstore"
	"github.com/gophersatwork/fscache/internal/config"
	"github.com/gophersatwork/fscache/internal/logging"
)

// OpenNamed opens the cache called name (or "cache" when empty) using the
// resolved configuration. The mode comes from the environment variable
// envvar when it is set, else from FSCACHE_CACHE. An unknown mode value is
// logged and ignored. options are applied after the configuration and
// override it.
func OpenNamed(name, envvar string, options ...Option) (*Cache, error) {
	cfg, err := config.Load(config.Options{Name: name, EnvVar: envvar})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return OpenConfig(cfg, options...)
}

// OpenConfig opens a cache from an already loaded configuration.
func OpenConfig(cfg *config.Config, options ...Option) (*Cache, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	mode, err := ParseMode(cfg.Cache)
	if err != nil {
		if !errors.Is(err, ErrInvalidMode) {
			return nil, err
		}
		logger.Warn("cache control value is not understood and thus ignored",
			"var", cfg.ControlVar, "value", cfg.Cache, "err", err)
		mode = ModeNormal
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithMode(mode),
		WithLogger(logger),
		WithWindow(cfg.Window),
		WithWorkers(cfg.Workers),
		WithTokens(cfg.Tokens...),
	}
	if cfg.Walker == config.WalkerFastwalk {
		opts = append(opts, WithWalker(NewFastWalker(WithWalkWorkers(cfg.Workers), WithWalkLogger(logger))))
	}
	opts = append(opts, options...)

	return New(store, opts...), nil
}

func openStore(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreBadger:
		s, err := badgerstore.Open(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := OpenFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
