// Package config loads assistant configuration from defaults, an optional
// YAML file and IRIS_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the assistant backend.
type Config struct {
	// DataDir is the root for every JSON store.
	DataDir string `yaml:"data_dir"`
	// Timezone is the IANA zone applied to offset-less timestamps.
	Timezone string `yaml:"timezone"`
	// AllowedSenders is the whitelist for reminder delivery and task
	// creation.
	AllowedSenders []string `yaml:"allowed_senders"`
	// SessionRetentionDays controls conversation cleanup.
	SessionRetentionDays int `yaml:"session_retention_days"`
	// RulesEnabled starts the cron rule engine.
	RulesEnabled bool `yaml:"rules_enabled"`
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`

	location *time.Location
}

// Option overrides one configuration value programmatically.
type Option func(*Config)

// WithDataDir overrides the data directory.
func WithDataDir(dir string) Option {
	return func(c *Config) { c.DataDir = dir }
}

// WithTimezone overrides the timezone.
func WithTimezone(tz string) Option {
	return func(c *Config) { c.Timezone = tz }
}

// WithAllowedSenders overrides the sender whitelist.
func WithAllowedSenders(senders []string) Option {
	return func(c *Config) { c.AllowedSenders = senders }
}

func defaults() Config {
	return Config{
		DataDir:              "data",
		Timezone:             "Local",
		SessionRetentionDays: 30,
		RulesEnabled:         true,
	}
}

// Load builds the configuration. Precedence, lowest to highest: built-in
// defaults, the YAML file at path (skipped when path is empty or the file is
// missing), IRIS_* environment variables, then opts.
func Load(path string, opts ...Option) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	for _, opt := range opts {
		opt(&cfg)
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.SessionRetentionDays <= 0 {
		cfg.SessionRetentionDays = defaults().SessionRetentionDays
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("IRIS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IRIS_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("IRIS_ALLOWED_SENDERS"); v != "" {
		var senders []string
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				senders = append(senders, addr)
			}
		}
		cfg.AllowedSenders = senders
	}
	if v := os.Getenv("IRIS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("IRIS_RULES_ENABLED"); v != "" {
		cfg.RulesEnabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Location returns the configured timezone.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Store file locations under DataDir.

func (c Config) RemindersPath() string { return filepath.Join(c.DataDir, "reminders.json") }
func (c Config) MemoryDir() string     { return filepath.Join(c.DataDir, "memory") }
func (c Config) UserDataPath() string  { return filepath.Join(c.DataDir, "user_data.json") }
func (c Config) DiaryPath() string     { return filepath.Join(c.DataDir, "diary.json") }
func (c Config) ActivityPath() string  { return filepath.Join(c.DataDir, "reminder_activity.json") }
func (c Config) RulesPath() string     { return filepath.Join(c.DataDir, "rules.json") }
func (c Config) SessionsPath() string  { return filepath.Join(c.DataDir, "sessions.json") }
func (c Config) TaskInboxDir() string  { return filepath.Join(c.DataDir, "inputs") }
