package storage

import (
	"sync"

	"github.com/san-kum/tankdcs/internal/plant"
)

// History is the per-tick trace of a run, one row per tick.
type History struct {
	Names    []string         `json:"names"`
	Ticks    []int            `json:"ticks"`
	Times    []float64        `json:"times"`
	Levels   [][]float64      `json:"levels"`
	Targets  [][]float64      `json:"targets"`
	Statuses [][]plant.Status `json:"statuses"`
}

func (h *History) Len() int { return len(h.Times) }

// Series returns the level trace of one tank.
func (h *History) Series(tank int) []float64 {
	out := make([]float64, 0, len(h.Levels))
	for _, row := range h.Levels {
		if tank < len(row) {
			out = append(out, row[tank])
		}
	}
	return out
}

func (h *History) append(tick int, elapsed float64, snaps []plant.Snapshot) {
	if h.Names == nil {
		h.Names = make([]string, len(snaps))
		for i, s := range snaps {
			h.Names[i] = s.Name
		}
	}
	levels := make([]float64, len(snaps))
	targets := make([]float64, len(snaps))
	statuses := make([]plant.Status, len(snaps))
	for i, s := range snaps {
		levels[i] = s.Level
		targets[i] = s.Target
		statuses[i] = s.Status
	}
	h.Ticks = append(h.Ticks, tick)
	h.Times = append(h.Times, elapsed)
	h.Levels = append(h.Levels, levels)
	h.Targets = append(h.Targets, targets)
	h.Statuses = append(h.Statuses, statuses)
}

// Recorder is a supervisor observer that keeps the full run history.
type Recorder struct {
	mu   sync.Mutex
	hist History
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Seed records the state before the first tick as tick 0.
func (r *Recorder) Seed(snaps []plant.Snapshot) {
	r.OnTick(0, 0, snaps)
}

func (r *Recorder) OnTick(tick int, elapsed float64, snaps []plant.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hist.append(tick, elapsed, snaps)
}

func (r *Recorder) History() *History {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.hist
	return &h
}
