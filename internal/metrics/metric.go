package metrics

import "github.com/san-kum/tankdcs/internal/plant"

type Metric interface {
	Name() string
	Observe(snaps []plant.Snapshot)
	Value() float64
	Reset()
}

// Collector fans supervisor ticks out to a set of metrics.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

// Defaults is the metric set recorded with every run.
func Defaults() *Collector {
	return NewCollector(
		NewStability(),
		NewAlarmEvents(),
		NewControlEffort(),
		NewMaxDeviation(),
	)
}

func (c *Collector) OnTick(tick int, elapsed float64, snaps []plant.Snapshot) {
	for _, m := range c.metrics {
		m.Observe(snaps)
	}
}

func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}
