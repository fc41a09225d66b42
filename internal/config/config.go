// Package config loads the process-wide controller configuration. Values
// are read once at startup and never mutated by the control loop.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval         = 2.0
	DefaultMaxTemperature       = 2000.0
	DefaultBackupThreshold      = 0.10
	DefaultOverflowThreshold    = 0.95
	DefaultOverflowResumeMargin = 0.10
	DefaultTargetFraction       = 0.90
	DefaultKp                   = 10.0
	DefaultKi                   = 0.1
	DefaultKd                   = 5.0
)

type Config struct {
	// PollInterval is the control cadence in seconds.
	PollInterval float64 `yaml:"poll_interval" toml:"poll_interval"`

	MaxTemperature       float64 `yaml:"max_temperature" toml:"max_temperature"`
	BackupThreshold      float64 `yaml:"backup_threshold" toml:"backup_threshold"`
	OverflowThreshold    float64 `yaml:"overflow_threshold" toml:"overflow_threshold"`
	OverflowResumeMargin float64 `yaml:"overflow_resume_margin" toml:"overflow_resume_margin"`
	TargetEnergyFraction float64 `yaml:"target_energy_fraction" toml:"target_energy_fraction"`

	PID     PIDConfig     `yaml:"pid" toml:"pid"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	Display DisplayConfig `yaml:"display" toml:"display"`
	Alerts  AlertsConfig  `yaml:"alerts" toml:"alerts"`
}

type PIDConfig struct {
	Kp float64 `yaml:"kp" toml:"kp"`
	Ki float64 `yaml:"ki" toml:"ki"`
	Kd float64 `yaml:"kd" toml:"kd"`

	// IntegralLimit bounds the accumulator; 0 keeps it unbounded.
	IntegralLimit float64 `yaml:"integral_limit" toml:"integral_limit"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Level   string `yaml:"level" toml:"level"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Listen  string `yaml:"listen" toml:"listen"`
}

type DisplayConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

type AlertsConfig struct {
	Channel string `yaml:"channel" toml:"channel"`
}

func DefaultConfig() *Config {
	return &Config{
		PollInterval:         DefaultPollInterval,
		MaxTemperature:       DefaultMaxTemperature,
		BackupThreshold:      DefaultBackupThreshold,
		OverflowThreshold:    DefaultOverflowThreshold,
		OverflowResumeMargin: DefaultOverflowResumeMargin,
		TargetEnergyFraction: DefaultTargetFraction,
		PID: PIDConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		Logging: LoggingConfig{Enabled: true, Level: "info"},
		History: HistoryConfig{Enabled: false, Path: "reactord.db"},
		Metrics: MetricsConfig{Enabled: false, Listen: ":9465"},
		Display: DisplayConfig{Width: 80, Height: 24},
		Alerts:  AlertsConfig{Channel: "reactor-alerts"},
	}
}

// Load reads a config file on top of the defaults. The format follows the
// file extension: .toml parses as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %f", c.PollInterval)
	}
	if c.MaxTemperature <= 0 {
		return fmt.Errorf("max_temperature must be positive, got %f", c.MaxTemperature)
	}
	if c.OverflowThreshold <= 0 || c.OverflowThreshold > 1 {
		return fmt.Errorf("overflow_threshold must be in (0,1], got %f", c.OverflowThreshold)
	}
	if c.BackupThreshold < 0 || c.BackupThreshold >= c.OverflowThreshold {
		return fmt.Errorf("backup_threshold must be in [0, overflow_threshold), got %f", c.BackupThreshold)
	}
	if c.OverflowResumeMargin <= 0 || c.OverflowResumeMargin >= c.OverflowThreshold {
		return fmt.Errorf("overflow_resume_margin must be in (0, overflow_threshold), got %f", c.OverflowResumeMargin)
	}
	if c.TargetEnergyFraction <= 0 || c.TargetEnergyFraction > 1 {
		return fmt.Errorf("target_energy_fraction must be in (0,1], got %f", c.TargetEnergyFraction)
	}
	if c.PID.IntegralLimit < 0 {
		return fmt.Errorf("pid.integral_limit must not be negative, got %f", c.PID.IntegralLimit)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display dimensions must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	return nil
}
