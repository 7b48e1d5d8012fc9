package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// --- Layers ---

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfigFrom(filepath.Join(t.TempDir(), "missing.json"), envMap(nil))
	assert.Equal(t, defaultConfig(), cfg)
	require.NoError(t, cfg.validate())
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"debug","mirror_dir":"/srv/mirror","concurrency":2}`), 0o644))

	cfg := loadConfigFrom(path, envMap(nil))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/mirror", cfg.MirrorDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, outputTree, cfg.Output, "unset keys keep defaults")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"debug","output":"mermaid"}`), 0o644))

	cfg := loadConfigFrom(path, envMap(map[string]string{
		"CIGRAPH_LOG_LEVEL":   "error",
		"CIGRAPH_LOG_FORMAT":  "json",
		"CIGRAPH_MIRROR_DIR":  "/tmp/m",
		"CIGRAPH_OUTPUT":      "JSON",
		"CIGRAPH_CONCURRENCY": "4",
	}))
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/m", cfg.MirrorDir)
	assert.Equal(t, outputJSON, cfg.Output)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoadConfig_BadInputsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	cfg := loadConfigFrom(path, envMap(map[string]string{"CIGRAPH_CONCURRENCY": "many"}))
	assert.Equal(t, defaultConfig(), cfg)
}

// --- Validation ---

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Output = "yaml"
	assert.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Concurrency = -1
	assert.Error(t, cfg.validate())
}

func TestWriteSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	want := Config{LogLevel: "info", LogFormat: "json", MirrorDir: "/m", Output: outputMermaid, Concurrency: 3}
	require.NoError(t, writeSettings(path, want))
	assert.Equal(t, want, loadConfigFrom(path, envMap(nil)))
}
