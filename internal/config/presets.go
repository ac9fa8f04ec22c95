package config

import (
	"slices"
	"time"
)

var Presets = map[string]func() *Config{
	// the classroom dashboard: four tanks, 1.5 s cadence
	"classroom": DefaultConfig,
	"quiet": func() *Config {
		cfg := DefaultConfig()
		cfg.Noise = 0
		cfg.Gain = 0.5
		cfg.MaxFlow = 0
		return cfg
	},
	"noisy": func() *Config {
		cfg := DefaultConfig()
		cfg.Noise = 6
		cfg.Gain = 0.25
		cfg.DisturbanceMax = 30
		cfg.TickPeriod = 500 * time.Millisecond
		return cfg
	},
	"plant8": func() *Config {
		cfg := DefaultConfig().WithTankCount(8)
		for i := range cfg.Tanks {
			cfg.Tanks[i].Tolerance = 6 + float64(i%3)*2
			cfg.Tanks[i].Target = 35 + float64(i)*4
			cfg.Tanks[i].Level = cfg.Tanks[i].Target
		}
		cfg.TickPeriod = time.Second
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
