package plant

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func quietParams() Params {
	p := DefaultParams()
	p.Gain = 0
	p.Noise = 0
	p.TargetMin = 0
	p.TargetMax = 100
	return p
}

func newTank(t *testing.T, spec Spec, params Params) *Tank {
	t.Helper()
	tk, err := New(spec, params)
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}
	return tk
}

func TestDisturbanceLandsOnNextStep(t *testing.T) {
	tk := newTank(t, Spec{Name: "T1", Level: 50, Target: 50, Tolerance: 5}, quietParams())

	if err := tk.InjectDisturbance(20); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if tk.Level() != 50 {
		t.Errorf("inject must not move the level, got %.2f", tk.Level())
	}

	tk.Step(1.0, nil)

	if tk.Level() != 70 {
		t.Errorf("expected level 70, got %v", tk.Level())
	}
	if tk.Disturbance() != 0 {
		t.Errorf("disturbance not cleared: %v", tk.Disturbance())
	}
	if tk.Status() != Alarm {
		t.Errorf("expected ALARM, got %s", tk.Status())
	}

	tk.Step(1.0, nil)
	if tk.Level() != 70 {
		t.Errorf("disturbance re-applied: level %v", tk.Level())
	}
}

func TestStepIgnoresBadDt(t *testing.T) {
	p := DefaultParams()
	p.Noise = 0
	for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -1} {
		tk := newTank(t, Spec{Name: "T1", Level: 80, Target: 50, Tolerance: 5}, p)
		_ = tk.InjectDisturbance(5)

		tk.Step(dt, rand.New(rand.NewPCG(1, 2)))

		if tk.Level() != 80 {
			t.Errorf("dt %v: level = %v, want 80", dt, tk.Level())
		}
		if tk.Disturbance() != 5 {
			t.Errorf("dt %v: pending disturbance consumed", dt)
		}

		tk.Step(1, nil)
		if math.IsNaN(tk.Level()) || math.IsInf(tk.Level(), 0) {
			t.Errorf("dt %v: level not finite after a good step: %v", dt, tk.Level())
		}
	}
}

func TestInjectReplacesPending(t *testing.T) {
	tk := newTank(t, Spec{Name: "T1", Level: 50, Target: 50, Tolerance: 5}, quietParams())
	_ = tk.InjectDisturbance(10)
	_ = tk.InjectDisturbance(-4)
	tk.Step(1.0, nil)
	if tk.Level() != 46 {
		t.Errorf("expected 46, got %v", tk.Level())
	}
}

func TestInjectRejectsNonFinite(t *testing.T) {
	tk := newTank(t, Spec{Name: "T1", Level: 50, Target: 50, Tolerance: 5}, quietParams())
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := tk.InjectDisturbance(v); !errors.Is(err, ErrInvalidDisturbance) {
			t.Errorf("InjectDisturbance(%v) = %v, want ErrInvalidDisturbance", v, err)
		}
	}
	if tk.Disturbance() != 0 {
		t.Error("rejected disturbance was stored")
	}
}

func TestCorrection(t *testing.T) {
	tests := []struct {
		name    string
		level   float64
		gain    float64
		maxFlow float64
		dt      float64
		want    float64
	}{
		{"inside band", 55, 0.4, 10, 1, 55},
		{"on band edge", 60, 0.4, 10, 1, 60},
		{"above, rate limited", 80, 0.4, 10, 1, 70},
		{"below, rate limited", 20, 0.4, 10, 1, 30},
		{"above, proportional", 65, 0.4, 10, 1, 59},
		{"unlimited flow", 80, 0.5, 0, 1, 65},
		{"half cycle", 80, 0.5, 0, 0.5, 72.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := quietParams()
			p.Gain = tt.gain
			p.MaxFlow = tt.maxFlow
			tk := newTank(t, Spec{Name: "T", Level: tt.level, Target: 50, Tolerance: 10}, p)
			tk.Step(tt.dt, nil)
			if math.Abs(tk.Level()-tt.want) > 1e-9 {
				t.Errorf("level = %v, want %v", tk.Level(), tt.want)
			}
		})
	}
}

func TestStepStaysInBounds(t *testing.T) {
	p := DefaultParams()
	p.Noise = 8
	rng := rand.New(rand.NewPCG(7, 11))
	tk := newTank(t, Spec{Name: "T", Level: 50, Target: 50, Tolerance: 10}, p)

	for i := 0; i < 5000; i++ {
		if i%7 == 0 {
			_ = tk.InjectDisturbance((rng.Float64()*2 - 1) * 150)
		}
		tk.Step(1.0, rng)
		l := tk.Level()
		if math.IsNaN(l) || math.IsInf(l, 0) || l < p.LevelMin || l > p.LevelMax {
			t.Fatalf("step %d: level %v escaped [%v, %v]", i, l, p.LevelMin, p.LevelMax)
		}
	}
}

func TestClampPolicy(t *testing.T) {
	tk := newTank(t, Spec{Name: "T", Level: 95, Target: 50, Tolerance: 5}, quietParams())
	_ = tk.InjectDisturbance(40)
	tk.Step(1.0, nil)
	if tk.Level() != 100 {
		t.Errorf("expected clamp to 100, got %v", tk.Level())
	}
	_ = tk.InjectDisturbance(-400)
	tk.Step(1.0, nil)
	if tk.Level() != 0 {
		t.Errorf("expected clamp to 0, got %v", tk.Level())
	}
}

func TestNoiseIsBounded(t *testing.T) {
	p := quietParams()
	p.Noise = 3
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		tk := newTank(t, Spec{Name: "T", Level: 50, Target: 50, Tolerance: 10}, p)
		tk.Step(1.0, rng)
		if d := math.Abs(tk.Level() - 50); d > 3 {
			t.Fatalf("noise %v exceeds amplitude 3", d)
		}
	}
}

func TestSetTarget(t *testing.T) {
	p := quietParams()
	p.TargetMin = 0
	p.TargetMax = 80
	tk := newTank(t, Spec{Name: "T", Level: 50, Target: 50, Tolerance: 5}, p)

	for _, v := range []float64{-5, 80.0001, math.NaN(), math.Inf(1)} {
		if err := tk.SetTarget(v); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("SetTarget(%v) = %v, want ErrInvalidTarget", v, err)
		}
		if tk.Target() != 50 {
			t.Fatalf("rejected target changed state to %v", tk.Target())
		}
	}

	for _, v := range []float64{0, 80, 33.3} {
		if err := tk.SetTarget(v); err != nil {
			t.Errorf("SetTarget(%v): %v", v, err)
		}
		if tk.Target() != v {
			t.Errorf("target = %v, want %v", tk.Target(), v)
		}
	}
}

func TestResetIdempotent(t *testing.T) {
	p := DefaultParams()
	spec := Spec{Name: "T", Level: 40, Target: 45, Tolerance: 8}
	tk := newTank(t, spec, p)
	rng := rand.New(rand.NewPCG(3, 3))

	_ = tk.SetTarget(70)
	_ = tk.InjectDisturbance(12)
	tk.Step(1.0, rng)
	_ = tk.InjectDisturbance(-3)

	tk.Reset()
	once := *tk
	tk.Reset()
	twice := *tk

	if once != twice {
		t.Errorf("reset not idempotent: %+v vs %+v", once, twice)
	}
	if tk.Level() != 40 || tk.Target() != 45 || tk.Tolerance() != 8 || tk.Disturbance() != 0 || tk.Flow() != 0 {
		t.Errorf("reset left %+v", *tk)
	}
}

func TestBandAndOverflow(t *testing.T) {
	tk := newTank(t, Spec{Name: "T", Level: 50, Target: 95, Tolerance: 10}, quietParams())
	low, high := tk.Band()
	if low != 85 || high != 100 {
		t.Errorf("band = [%v, %v], want [85, 100]", low, high)
	}

	tk = newTank(t, Spec{Name: "T", Level: 61, Target: 50, Tolerance: 10}, quietParams())
	snap := tk.Snapshot(2)
	if !snap.Overflow || snap.Index != 2 || snap.Name != "T" || snap.Status != Warning {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zero tolerance", Spec{Level: 50, Target: 50, Tolerance: 0}},
		{"negative tolerance", Spec{Level: 50, Target: 50, Tolerance: -1}},
		{"target out of range", Spec{Level: 50, Target: 90, Tolerance: 5}},
		{"level out of range", Spec{Level: 120, Target: 50, Tolerance: 5}},
		{"nan level", Spec{Level: math.NaN(), Target: 50, Tolerance: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.spec, DefaultParams()); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"inverted level range", func(p *Params) { p.LevelMin, p.LevelMax = 100, 0 }},
		{"inverted target range", func(p *Params) { p.TargetMin, p.TargetMax = 80, 20 }},
		{"target outside level", func(p *Params) { p.TargetMax = 150 }},
		{"negative gain", func(p *Params) { p.Gain = -1 }},
		{"negative noise", func(p *Params) { p.Noise = -0.1 }},
		{"narrow warning band", func(p *Params) { p.WarningBand = 0.9 }},
		{"nan gain", func(p *Params) { p.Gain = math.NaN() }},
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	err := &CommandError{Op: "set_target", Tank: 1, Value: -5, Wrapped: ErrInvalidTarget}
	if !errors.Is(err, ErrInvalidTarget) {
		t.Error("CommandError does not unwrap")
	}
	want := "set_target tank 1 (-5.00): plant: target outside configured bounds"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
