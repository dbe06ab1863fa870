// Package config provides YAML-based configuration loading for Shepherd.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Shepherd configuration, loaded from shepherd.yaml.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Transport TransportConfig `yaml:"transport"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Windows   WindowsConfig   `yaml:"windows"`
	Admin     AdminConfig     `yaml:"admin"`
}

// StoreConfig holds connection settings for the MySQL directory store.
type StoreConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// TransportConfig selects and configures the chat transport.
type TransportConfig struct {
	Platform   string `yaml:"platform"` // "whatsapp" or "mock"
	DataDir    string `yaml:"data_dir"` // whatsapp session storage
	AdminPhone string `yaml:"admin_phone"`
}

// SchedulerConfig controls the daily campaign run.
type SchedulerConfig struct {
	DailyCron   string `yaml:"daily_cron"`   // 5-field cron anchor, default 09:00
	TickSeconds int    `yaml:"tick_seconds"` // clock poll granularity
}

// DispatchConfig controls outbound batching and pacing.
type DispatchConfig struct {
	BatchSize      int `yaml:"batch_size"`
	MessageDelayMs int `yaml:"message_delay_ms"`
	BatchDelayMs   int `yaml:"batch_delay_ms"`
}

// WindowsConfig holds the campaign lookback/lookahead windows in days.
type WindowsConfig struct {
	VisitorLookbackDays int `yaml:"visitor_lookback_days"`
	EventLookaheadDays  int `yaml:"event_lookahead_days"`
}

// AdminConfig configures the operator HTTP surface and the Slack
// operations channel.
type AdminConfig struct {
	Port          int    `yaml:"port"`
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Store.Host == "" {
		c.Store.Host = "127.0.0.1"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 3306
	}
	if c.Store.Database == "" {
		c.Store.Database = "shepherd"
	}
	if c.Transport.DataDir == "" {
		c.Transport.DataDir = ".shepherd"
	}
	if c.Scheduler.DailyCron == "" {
		c.Scheduler.DailyCron = "0 9 * * *"
	}
	if c.Scheduler.TickSeconds == 0 {
		c.Scheduler.TickSeconds = 60
	}
	if c.Dispatch.BatchSize == 0 {
		c.Dispatch.BatchSize = 20
	}
	if c.Dispatch.MessageDelayMs == 0 {
		c.Dispatch.MessageDelayMs = 500
	}
	if c.Dispatch.BatchDelayMs == 0 {
		c.Dispatch.BatchDelayMs = 10000
	}
	if c.Windows.VisitorLookbackDays == 0 {
		c.Windows.VisitorLookbackDays = 7
	}
	if c.Windows.EventLookaheadDays == 0 {
		c.Windows.EventLookaheadDays = 7
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 3001
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Transport.Platform == "" {
		errs = append(errs, "transport.platform is required")
	}
	if c.Transport.Platform != "" && c.Transport.Platform != "whatsapp" && c.Transport.Platform != "mock" {
		errs = append(errs, fmt.Sprintf("transport.platform %q is not supported", c.Transport.Platform))
	}
	if c.Dispatch.BatchSize < 0 {
		errs = append(errs, "dispatch.batch_size must be positive")
	}
	if c.Scheduler.TickSeconds < 0 {
		errs = append(errs, "scheduler.tick_seconds must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
