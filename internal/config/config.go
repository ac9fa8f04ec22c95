package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/san-kum/tankdcs/internal/plant"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTanks          = 4
	DefaultLevel          = 50.0
	DefaultTarget         = 50.0
	DefaultTolerance      = 10.0
	DefaultDt             = 1.0
	DefaultTickPeriod     = 1500 * time.Millisecond
	DefaultDisturbanceMax = 20.0
	DefaultSpillMin       = 24.0
	DefaultSpillMax       = 34.0
)

type Config struct {
	Seed           uint64        `yaml:"seed"`
	TickPeriod     time.Duration `yaml:"tick_period"`
	Dt             float64       `yaml:"dt"`
	LevelMin       float64       `yaml:"level_min"`
	LevelMax       float64       `yaml:"level_max"`
	TargetMin      float64       `yaml:"target_min"`
	TargetMax      float64       `yaml:"target_max"`
	Gain           float64       `yaml:"gain"`
	MaxFlow        float64       `yaml:"max_flow"`
	Noise          float64       `yaml:"noise"`
	WarningBand    float64       `yaml:"warning_band"`
	DisturbanceMax float64       `yaml:"disturbance_max"`
	SpillMin       float64       `yaml:"spill_min"`
	SpillMax       float64       `yaml:"spill_max"`
	Tanks          []TankConfig  `yaml:"tanks"`
}

type TankConfig struct {
	Name      string  `yaml:"name"`
	Level     float64 `yaml:"level"`
	Target    float64 `yaml:"target"`
	Tolerance float64 `yaml:"tolerance"`
}

func DefaultConfig() *Config {
	p := plant.DefaultParams()
	cfg := &Config{
		TickPeriod:     DefaultTickPeriod,
		Dt:             DefaultDt,
		LevelMin:       p.LevelMin,
		LevelMax:       p.LevelMax,
		TargetMin:      p.TargetMin,
		TargetMax:      p.TargetMax,
		Gain:           p.Gain,
		MaxFlow:        p.MaxFlow,
		Noise:          p.Noise,
		WarningBand:    p.WarningBand,
		DisturbanceMax: DefaultDisturbanceMax,
		SpillMin:       DefaultSpillMin,
		SpillMax:       DefaultSpillMax,
	}
	return cfg.WithTankCount(DefaultTanks)
}

// WithTankCount replaces the tank list with n default tanks named Tank-1..Tank-n.
func (c *Config) WithTankCount(n int) *Config {
	c.Tanks = make([]TankConfig, 0, max(n, 0))
	for i := 0; i < n; i++ {
		c.Tanks = append(c.Tanks, TankConfig{
			Name:      fmt.Sprintf("Tank-%d", i+1),
			Level:     DefaultLevel,
			Target:    DefaultTarget,
			Tolerance: DefaultTolerance,
		})
	}
	return c
}

// Load reads a config file over the defaults.
func Load(path string) (*Config, error) {
	return LoadInto(path, DefaultConfig())
}

// LoadInto reads a config file over base, so keys missing from the file keep
// base's values. base is modified and returned.
func LoadInto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Params() plant.Params {
	return plant.Params{
		LevelMin:    c.LevelMin,
		LevelMax:    c.LevelMax,
		TargetMin:   c.TargetMin,
		TargetMax:   c.TargetMax,
		Gain:        c.Gain,
		MaxFlow:     c.MaxFlow,
		Noise:       c.Noise,
		WarningBand: c.WarningBand,
	}
}

func (c *Config) Specs() []plant.Spec {
	specs := make([]plant.Spec, len(c.Tanks))
	for i, t := range c.Tanks {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("Tank-%d", i+1)
		}
		specs[i] = plant.Spec{Name: name, Level: t.Level, Target: t.Target, Tolerance: t.Tolerance}
	}
	return specs
}

// Validate reports every problem that must stop the simulation from starting.
// All errors wrap plant.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if len(c.Tanks) == 0 {
		return fmt.Errorf("%w: at least one tank is required", plant.ErrInvalidConfiguration)
	}
	for name, v := range map[string]float64{
		"dt": c.Dt, "disturbance_max": c.DisturbanceMax,
		"spill_min": c.SpillMin, "spill_max": c.SpillMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", plant.ErrInvalidConfiguration, name)
		}
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", plant.ErrInvalidConfiguration, c.Dt)
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("%w: tick_period must be positive, got %s", plant.ErrInvalidConfiguration, c.TickPeriod)
	}
	if c.DisturbanceMax < 0 {
		return fmt.Errorf("%w: disturbance_max must be non-negative", plant.ErrInvalidConfiguration)
	}
	if c.SpillMin < 0 || c.SpillMin > c.SpillMax {
		return fmt.Errorf("%w: spill range [%.2f, %.2f] is invalid", plant.ErrInvalidConfiguration, c.SpillMin, c.SpillMax)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	for _, s := range c.Specs() {
		if _, err := plant.New(s, c.Params()); err != nil {
			return err
		}
	}
	return nil
}
