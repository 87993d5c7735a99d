package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults match the reference tuning: a 0.5 m rail, ball starting far
// left, setpoint on the right half.
const (
	DefaultSetpoint      = 0.10
	DefaultKp            = 22.0
	DefaultKi            = 1.2
	DefaultKd            = 4.5
	DefaultDt            = 0.02
	DefaultDuration      = 12.0
	DefaultRailLength    = 0.5
	DefaultGravity       = 9.81
	DefaultFriction      = 0.1
	DefaultMaxAngle      = 38.0 * math.Pi / 180.0
	DefaultIntegralLimit = 2.0
	DefaultInitialOffset = -0.22
	DefaultFPS           = 30
)

type Config struct {
	Setpoint      float64 `yaml:"setpoint"`
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	Dt            float64 `yaml:"dt"`
	Duration      float64 `yaml:"duration"`
	RailLength    float64 `yaml:"rail_length"`
	Gravity       float64 `yaml:"gravity"`
	Friction      float64 `yaml:"friction"`
	MaxAngle      float64 `yaml:"max_angle"` // radians
	IntegralLimit float64 `yaml:"integral_limit"`
	InitialOffset float64 `yaml:"initial_offset"`
	FPS           int     `yaml:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		Setpoint:      DefaultSetpoint,
		Kp:            DefaultKp,
		Ki:            DefaultKi,
		Kd:            DefaultKd,
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		RailLength:    DefaultRailLength,
		Gravity:       DefaultGravity,
		Friction:      DefaultFriction,
		MaxAngle:      DefaultMaxAngle,
		IntegralLimit: DefaultIntegralLimit,
		InitialOffset: DefaultInitialOffset,
		FPS:           DefaultFPS,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.RailLength <= 0 {
		return fmt.Errorf("rail_length must be positive, got %f", c.RailLength)
	}
	if c.MaxAngle <= 0 || c.MaxAngle >= math.Pi/2 {
		return fmt.Errorf("max_angle must be in (0, pi/2), got %f", c.MaxAngle)
	}
	if math.Abs(c.InitialOffset) > c.RailLength/2 {
		return fmt.Errorf("initial_offset %f outside rail", c.InitialOffset)
	}
	for name, v := range map[string]float64{
		"setpoint": c.Setpoint, "kp": c.Kp, "ki": c.Ki, "kd": c.Kd,
		"gravity": c.Gravity, "friction": c.Friction,
		"integral_limit": c.IntegralLimit,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	return nil
}
