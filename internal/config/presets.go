package config

import "sort"

// Presets are named tunings layered over DefaultConfig; zero fields keep
// the default.
var Presets = map[string]*Config{
	"gentle": {
		Setpoint: 0.05, Kp: 8.0, Ki: 0.3, Kd: 2.0, InitialOffset: -0.10,
	},
	"aggressive": {
		Setpoint: 0.10, Kp: 60.0, Ki: 3.0, Kd: 8.0, InitialOffset: -0.22,
	},
	"sluggish": {
		Setpoint: 0.10, Kp: 4.0, Ki: 0.2, Kd: 1.0, InitialOffset: -0.15,
	},
	"edge": {
		Setpoint: 0.22, Kp: 22.0, Ki: 1.2, Kd: 4.5, InitialOffset: -0.24,
	},
}

func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Setpoint = p.Setpoint
	cfg.Kp = p.Kp
	cfg.Ki = p.Ki
	cfg.Kd = p.Kd
	if p.InitialOffset != 0 {
		cfg.InitialOffset = p.InitialOffset
	}
	if p.Dt != 0 {
		cfg.Dt = p.Dt
	}
	if p.Duration != 0 {
		cfg.Duration = p.Duration
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
