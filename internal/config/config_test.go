package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PollInterval <= 0 {
		t.Error("poll interval should be positive")
	}
	if cfg.OverflowThreshold != 0.95 {
		t.Errorf("expected overflow threshold 0.95, got %f", cfg.OverflowThreshold)
	}
	if cfg.OverflowResumeMargin != 0.10 {
		t.Errorf("expected resume margin 0.10, got %f", cfg.OverflowResumeMargin)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactord.yaml")
	data := []byte("poll_interval: 5.0\nmax_temperature: 1500\npid:\n  kp: 2.5\n  integral_limit: 40\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != 5.0 {
		t.Errorf("poll_interval = %f", cfg.PollInterval)
	}
	if cfg.MaxTemperature != 1500 {
		t.Errorf("max_temperature = %f", cfg.MaxTemperature)
	}
	if cfg.PID.Kp != 2.5 {
		t.Errorf("pid.kp = %f", cfg.PID.Kp)
	}
	if cfg.PID.IntegralLimit != 40 {
		t.Errorf("pid.integral_limit = %f", cfg.PID.IntegralLimit)
	}
	// untouched fields keep defaults
	if cfg.OverflowThreshold != DefaultOverflowThreshold {
		t.Errorf("overflow_threshold lost its default: %f", cfg.OverflowThreshold)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactord.toml")
	data := []byte("poll_interval = 3.0\n\n[pid]\nkp = 7.0\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval != 3.0 {
		t.Errorf("poll_interval = %f", cfg.PollInterval)
	}
	if cfg.PID.Kp != 7.0 {
		t.Errorf("pid.kp = %f", cfg.PID.Kp)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for negative poll interval")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"overflow above 1", func(c *Config) { c.OverflowThreshold = 1.5 }},
		{"backup above overflow", func(c *Config) { c.BackupThreshold = 0.96 }},
		{"zero resume margin", func(c *Config) { c.OverflowResumeMargin = 0 }},
		{"margin wider than threshold", func(c *Config) { c.OverflowResumeMargin = 0.99 }},
		{"negative integral limit", func(c *Config) { c.PID.IntegralLimit = -1 }},
		{"zero display width", func(c *Config) { c.Display.Width = 0 }},
		{"zero target", func(c *Config) { c.TargetEnergyFraction = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.PID.Kd = 9.5

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PID.Kd != 9.5 {
		t.Errorf("pid.kd = %f after round trip", loaded.PID.Kd)
	}
}
