package metrics

import (
	"math"

	"github.com/san-kum/tankdcs/internal/plant"
)

// ControlEffort is the mean |Qnet| the local controllers commanded.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(snaps []plant.Snapshot) {
	for _, snap := range snaps {
		c.sum += math.Abs(snap.Flow)
		c.samples++
	}
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// MaxDeviation is the largest |level-target| seen on any tank.
type MaxDeviation struct {
	max float64
}

func NewMaxDeviation() *MaxDeviation {
	return &MaxDeviation{}
}

func (m *MaxDeviation) Name() string { return "max_deviation" }

func (m *MaxDeviation) Observe(snaps []plant.Snapshot) {
	for _, snap := range snaps {
		m.max = math.Max(m.max, math.Abs(snap.Level-snap.Target))
	}
}

func (m *MaxDeviation) Value() float64 { return m.max }

func (m *MaxDeviation) Reset() { m.max = 0 }
