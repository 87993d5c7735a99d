package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.RailLength != 0.5 {
		t.Errorf("expected rail length 0.5, got %f", cfg.RailLength)
	}
	if math.Abs(cfg.MaxAngle-0.6632) > 1e-3 {
		t.Errorf("expected max angle ~38 degrees, got %f rad", cfg.MaxAngle)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative rail", func(c *Config) { c.RailLength = -1 }},
		{"vertical rail", func(c *Config) { c.MaxAngle = math.Pi }},
		{"offset outside rail", func(c *Config) { c.InitialOffset = 1.0 }},
		{"NaN setpoint", func(c *Config) { c.Setpoint = math.NaN() }},
		{"Inf gain", func(c *Config) { c.Kp = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Kp = 33.0
	cfg.Setpoint = -0.05

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Kp != 33.0 || loaded.Setpoint != -0.05 {
		t.Errorf("roundtrip lost values: %+v", loaded)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("kp: 5.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Kp != 5.0 {
		t.Errorf("expected kp 5.0, got %f", cfg.Kp)
	}
	if cfg.Ki != DefaultKi {
		t.Errorf("unset fields should keep defaults, got ki=%f", cfg.Ki)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("gentle")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Kp != 8.0 {
		t.Errorf("expected kp 8.0, got %f", cfg.Kp)
	}
	if cfg.RailLength != DefaultRailLength {
		t.Error("preset should inherit rail defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset %q invalid: %v", "gentle", err)
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
}

func TestAllPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
}
