package plant

import (
	"fmt"
	"math"
)

// Rand is the slice of *rand.Rand a tank needs. Passing it in keeps a run
// reproducible from its seed.
type Rand interface {
	Float64() float64
}

// Params are the plant-wide constants shared by every tank.
type Params struct {
	LevelMin    float64
	LevelMax    float64
	TargetMin   float64
	TargetMax   float64
	Gain        float64
	MaxFlow     float64
	Noise       float64
	WarningBand float64
}

// DefaultParams mirrors a 0..100 % vessel with a 20..80 % setpoint range.
func DefaultParams() Params {
	return Params{
		LevelMin:    0,
		LevelMax:    100,
		TargetMin:   20,
		TargetMax:   80,
		Gain:        0.4,
		MaxFlow:     10,
		Noise:       3,
		WarningBand: 1.5,
	}
}

func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"level_min": p.LevelMin, "level_max": p.LevelMax,
		"target_min": p.TargetMin, "target_max": p.TargetMax,
		"gain": p.Gain, "max_flow": p.MaxFlow, "noise": p.Noise, "warning_band": p.WarningBand,
	} {
		if !finite(v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfiguration, name)
		}
	}
	if p.LevelMin >= p.LevelMax {
		return fmt.Errorf("%w: level_min %.2f must be below level_max %.2f", ErrInvalidConfiguration, p.LevelMin, p.LevelMax)
	}
	if p.TargetMin > p.TargetMax {
		return fmt.Errorf("%w: target_min %.2f exceeds target_max %.2f", ErrInvalidConfiguration, p.TargetMin, p.TargetMax)
	}
	if p.TargetMin < p.LevelMin || p.TargetMax > p.LevelMax {
		return fmt.Errorf("%w: target range must lie inside the level range", ErrInvalidConfiguration)
	}
	if p.Gain < 0 || p.MaxFlow < 0 || p.Noise < 0 {
		return fmt.Errorf("%w: gain, max_flow and noise must be non-negative", ErrInvalidConfiguration)
	}
	if p.WarningBand < 1 {
		return fmt.Errorf("%w: warning_band %.2f must be at least 1", ErrInvalidConfiguration, p.WarningBand)
	}
	return nil
}

// Spec holds the values a tank starts with and returns to on Reset.
type Spec struct {
	Name      string
	Level     float64
	Target    float64
	Tolerance float64
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Level     float64 `json:"level"`
	Target    float64 `json:"target_level"`
	Tolerance float64 `json:"tolerance"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Flow      float64 `json:"flow"`
	Status    Status  `json:"status"`
	Overflow  bool    `json:"overflow"`
}

type Tank struct {
	params   Params
	defaults Spec

	level       float64
	target      float64
	tolerance   float64
	disturbance float64
	flow        float64
}

func New(spec Spec, params Params) (*Tank, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !finite(spec.Tolerance) || spec.Tolerance <= 0 {
		return nil, fmt.Errorf("%w: %s tolerance %.2f must be positive", ErrInvalidConfiguration, spec.Name, spec.Tolerance)
	}
	if !finite(spec.Target) || spec.Target < params.TargetMin || spec.Target > params.TargetMax {
		return nil, fmt.Errorf("%w: %s default target %.2f outside [%.2f, %.2f]",
			ErrInvalidConfiguration, spec.Name, spec.Target, params.TargetMin, params.TargetMax)
	}
	if !finite(spec.Level) || spec.Level < params.LevelMin || spec.Level > params.LevelMax {
		return nil, fmt.Errorf("%w: %s initial level %.2f outside [%.2f, %.2f]",
			ErrInvalidConfiguration, spec.Name, spec.Level, params.LevelMin, params.LevelMax)
	}

	t := &Tank{params: params, defaults: spec}
	t.Reset()
	return t, nil
}

func (t *Tank) Name() string         { return t.defaults.Name }
func (t *Tank) Level() float64       { return t.level }
func (t *Tank) Target() float64      { return t.target }
func (t *Tank) Tolerance() float64   { return t.tolerance }
func (t *Tank) Disturbance() float64 { return t.disturbance }
func (t *Tank) Flow() float64        { return t.flow }

func (t *Tank) Status() Status {
	return Classify(t.level, t.target, t.tolerance, t.params.WarningBand)
}

// Band is the control range around the setpoint, cut to the vessel limits.
func (t *Tank) Band() (low, high float64) {
	low = math.Max(t.params.LevelMin, t.target-t.tolerance)
	high = math.Min(t.params.LevelMax, t.target+t.tolerance)
	return low, high
}

// Step advances the tank by one control cycle of dt seconds. A nil rng
// disables process noise. A dt that is not a positive finite number leaves
// the tank untouched.
func (t *Tank) Step(dt float64, rng Rand) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	dev := t.level - t.target
	q := 0.0
	if math.Abs(dev) > t.tolerance {
		q = -t.params.Gain * dev
		if t.params.MaxFlow > 0 {
			q = clamp(q, -t.params.MaxFlow, t.params.MaxFlow)
		}
	}
	t.flow = q
	t.level += q * dt

	if rng != nil && t.params.Noise > 0 {
		t.level += t.params.Noise * (2*rng.Float64() - 1)
	}

	// one-shot: applied once, then cleared
	t.level += t.disturbance
	t.disturbance = 0

	t.level = clamp(t.level, t.params.LevelMin, t.params.LevelMax)
}

// InjectDisturbance arms a signed disturbance for the next Step. It replaces
// any disturbance still pending and leaves the level untouched.
func (t *Tank) InjectDisturbance(magnitude float64) error {
	if !finite(magnitude) {
		return ErrInvalidDisturbance
	}
	t.disturbance = magnitude
	return nil
}

func (t *Tank) SetTarget(target float64) error {
	if !finite(target) || target < t.params.TargetMin || target > t.params.TargetMax {
		return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrInvalidTarget, target, t.params.TargetMin, t.params.TargetMax)
	}
	t.target = target
	return nil
}

// Reset restores level, setpoint and tolerance to their defaults and drops
// any pending disturbance.
func (t *Tank) Reset() {
	t.level = t.defaults.Level
	t.target = t.defaults.Target
	t.tolerance = t.defaults.Tolerance
	t.disturbance = 0
	t.flow = 0
}

func (t *Tank) Snapshot(index int) Snapshot {
	low, high := t.Band()
	return Snapshot{
		Index:     index,
		Name:      t.defaults.Name,
		Level:     t.level,
		Target:    t.target,
		Tolerance: t.tolerance,
		Low:       low,
		High:      high,
		Flow:      t.flow,
		Status:    t.Status(),
		Overflow:  t.level > high,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
