package metrics

import "github.com/san-kum/tankdcs/internal/plant"

// Stability is the fraction of observed tank-ticks classified Stable.
type Stability struct {
	name    string
	stable  int
	samples int
}

func NewStability() *Stability {
	return &Stability{
		name: "stable_ratio",
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(snaps []plant.Snapshot) {
	for _, snap := range snaps {
		s.samples++
		if snap.Status == plant.Stable {
			s.stable++
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return float64(s.stable) / float64(s.samples)
}

func (s *Stability) Reset() {
	s.stable = 0
	s.samples = 0
}

// AlarmEvents counts transitions into ALARM across all tanks.
type AlarmEvents struct {
	prev   []plant.Status
	events int
}

func NewAlarmEvents() *AlarmEvents {
	return &AlarmEvents{}
}

func (a *AlarmEvents) Name() string { return "alarm_events" }

func (a *AlarmEvents) Observe(snaps []plant.Snapshot) {
	if len(a.prev) != len(snaps) {
		a.prev = make([]plant.Status, len(snaps))
	}
	for i, snap := range snaps {
		if snap.Status == plant.Alarm && a.prev[i] != plant.Alarm {
			a.events++
		}
		a.prev[i] = snap.Status
	}
}

func (a *AlarmEvents) Value() float64 { return float64(a.events) }

func (a *AlarmEvents) Reset() {
	a.prev = nil
	a.events = 0
}
