package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Output formats accepted by analyze and diagram.
const (
	outputTree    = "tree"
	outputMermaid = "mermaid"
	outputJSON    = "json"
	outputPNG     = "png"
)

// Config holds all cigraph harness configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	MirrorDir   string `json:"mirror_dir"`
	Output      string `json:"output"`
	Concurrency int    `json:"concurrency"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Output:    outputTree,
	}
}

func cigraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cigraph"
	}
	return filepath.Join(home, ".cigraph")
}

func settingsPath() string {
	return filepath.Join(cigraphDir(), "settings.json")
}

func loadConfig() Config {
	return loadConfigFrom(settingsPath(), os.Getenv)
}

func loadConfigFrom(path string, getenv func(string) string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := getenv("CIGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("CIGRAPH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("CIGRAPH_MIRROR_DIR"); v != "" {
		cfg.MirrorDir = v
	}
	if v := getenv("CIGRAPH_OUTPUT"); v != "" {
		cfg.Output = strings.ToLower(v)
	}
	if v := getenv("CIGRAPH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Output {
	case outputTree, outputMermaid, outputJSON:
	default:
		return fmt.Errorf("invalid output %q (expected %s, %s or %s)", c.Output, outputTree, outputMermaid, outputJSON)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

func writeSettings(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
