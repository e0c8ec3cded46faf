package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points Load at an empty config directory so a developer's own
// configuration cannot leak into the tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	for _, key := range []string{"CACHE", "DIR", "STORE", "WALKER", "WORKERS", "WINDOW", "TOKENS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		require.NoError(t, os.Unsetenv(EnvPrefix+"_"+key))
	}
	return empty
}

func TestLoadDefaults(t *testing.T) {
	file := isolate(t)

	cfg, err := Load(Options{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Cache)
	assert.Equal(t, DefaultDir(DefaultName), cfg.Dir)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, WalkerStack, cfg.Walker)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultWindow, cfg.Window)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, DefaultControlVar, cfg.ControlVar)
}

func TestLoadName(t *testing.T) {
	file := isolate(t)

	cfg, err := Load(Options{Name: "parsers", ConfigFile: file})
	require.NoError(t, err)
	assert.Equal(t, "parsers", filepath.Base(cfg.Dir))
	assert.Equal(t, DefaultDir("parsers"), cfg.Dir)
}

func TestLoadEnvironment(t *testing.T) {
	file := isolate(t)
	t.Setenv("FSCACHE_CACHE", "clear")
	t.Setenv("FSCACHE_WORKERS", "8")
	t.Setenv("FSCACHE_WINDOW", "50ms")
	t.Setenv("FSCACHE_STORE", "badger")
	t.Setenv("FSCACHE_LOG_LEVEL", "debug")

	cfg, err := Load(Options{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, "clear", cfg.Cache)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.Window)
	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadControlVar(t *testing.T) {
	file := isolate(t)
	t.Setenv("FSCACHE_CACHE", "clear")

	t.Run("Named variable wins when set", func(t *testing.T) {
		t.Setenv("MYTOOL_CACHE", "ignore")
		cfg, err := Load(Options{EnvVar: "MYTOOL_CACHE", ConfigFile: file})
		require.NoError(t, err)
		assert.Equal(t, "ignore", cfg.Cache)
		assert.Equal(t, "MYTOOL_CACHE", cfg.ControlVar)
	})

	t.Run("Falls back when unset", func(t *testing.T) {
		cfg, err := Load(Options{EnvVar: "UNSET_TOOL_CACHE", ConfigFile: file})
		require.NoError(t, err)
		assert.Equal(t, "clear", cfg.Cache)
		assert.Equal(t, DefaultControlVar, cfg.ControlVar)
	})
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := `
dir: /var/cache/fscache
walker: fastwalk
workers: 12
window: 1s
tokens:
  - parser-v2
  - schema-7
log:
  level: info
  format: json
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg, err := Load(Options{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/fscache", cfg.Dir)
	assert.Equal(t, WalkerFastwalk, cfg.Walker)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, time.Second, cfg.Window)
	assert.Equal(t, []string{"parser-v2", "schema-7"}, cfg.Tokens)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Run("Environment overrides the file", func(t *testing.T) {
		t.Setenv("FSCACHE_WORKERS", "3")
		cfg, err := Load(Options{ConfigFile: file})
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Workers)
	})
}

func TestLoadInvalid(t *testing.T) {
	file := isolate(t)

	t.Run("Store", func(t *testing.T) {
		t.Setenv("FSCACHE_STORE", "redis")
		_, err := Load(Options{ConfigFile: file})
		assert.True(t, errors.Is(err, ErrInvalidStore), "got %v", err)
	})

	t.Run("Walker", func(t *testing.T) {
		t.Setenv("FSCACHE_WALKER", "bfs")
		_, err := Load(Options{ConfigFile: file})
		assert.True(t, errors.Is(err, ErrInvalidWalker), "got %v", err)
	})

	t.Run("Missing explicit file", func(t *testing.T) {
		_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, err)
	})
}
