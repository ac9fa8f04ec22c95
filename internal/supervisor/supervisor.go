// Package supervisor owns the tank farm and advances it one control cycle
// per Tick. It is the only boundary the presentation layer talks to:
// commands go in through setters, snapshots come out of Tick and Snapshots.
//
// All methods are safe for concurrent use; Tick and every command run under
// one mutex, so a tick never observes a half-applied command.
package supervisor

import (
	"io"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/san-kum/tankdcs/internal/config"
	"github.com/san-kum/tankdcs/internal/plant"
)

// golden mixes the seed into the second PCG word.
const golden = 0x9e3779b97f4a7c15

type State int

const (
	Running State = iota
	Paused
)

func (s State) String() string {
	if s == Paused {
		return "Paused"
	}
	return "Running"
}

// Observer is notified after every tick that advanced the tanks.
type Observer interface {
	OnTick(tick int, elapsed float64, snaps []plant.Snapshot)
}

type Supervisor struct {
	mu        sync.Mutex
	tanks     []*plant.Tank
	rng       *rand.Rand
	seed      uint64
	state     State
	ticks     int
	elapsed   float64
	last      []plant.Snapshot
	observers []Observer
	logger    *log.Logger

	disturbanceMax float64
	spillMin       float64
	spillMax       float64
}

type Option func(*Supervisor)

func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a running supervisor from a validated copy of cfg. The RNG is
// seeded from cfg.Seed, so equal configs give equal runs.
func New(cfg *config.Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := cfg.Params()
	specs := cfg.Specs()
	tanks := make([]*plant.Tank, len(specs))
	for i, spec := range specs {
		t, err := plant.New(spec, params)
		if err != nil {
			return nil, err
		}
		tanks[i] = t
	}

	s := &Supervisor{
		tanks:          tanks,
		rng:            rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^golden)),
		seed:           cfg.Seed,
		state:          Running,
		observers:      make([]Observer, 0),
		logger:         log.New(io.Discard),
		disturbanceMax: cfg.DisturbanceMax,
		spillMin:       cfg.SpillMin,
		spillMax:       cfg.SpillMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.refresh()

	s.logger.Info("supervisor ready", "tanks", len(tanks), "seed", cfg.Seed)
	return s, nil
}

func (s *Supervisor) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Tick advances every tank by dt in index order and returns the new
// snapshots. While paused, or for a non-positive dt, nothing advances and
// the current snapshots are returned.
func (s *Supervisor) Tick(dt float64) []plant.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Paused {
		return s.copyLast()
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		s.logger.Warn("tick ignored", "dt", dt)
		return s.copyLast()
	}

	for _, t := range s.tanks {
		t.Step(dt, s.rng)
	}
	s.ticks++
	s.elapsed += dt
	s.refresh()

	s.logger.Debug("tick", "n", s.ticks, "t", s.elapsed)
	for _, o := range s.observers {
		o.OnTick(s.ticks, s.elapsed, s.copyLast())
	}
	return s.copyLast()
}

func (s *Supervisor) Snapshots() []plant.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLast()
}

func (s *Supervisor) SetPause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Running
	if paused {
		next = Paused
	}
	if next == s.state {
		return
	}
	s.state = next
	s.logger.Info("simulation "+next.String(), "tick", s.ticks)
}

// ResetAll restores every tank to its defaults and zeroes the tick counter
// and elapsed time. Pause state and the RNG stream are kept.
func (s *Supervisor) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tanks {
		t.Reset()
	}
	s.ticks = 0
	s.elapsed = 0
	s.refresh()
	s.logger.Info("tanks reset to defaults")
}

func (s *Supervisor) SetTarget(index int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tank("set_target", index, value)
	if err != nil {
		return err
	}
	if err := t.SetTarget(value); err != nil {
		s.logger.Warn("target rejected", "tank", t.Name(), "value", value, "err", err)
		return &plant.CommandError{Op: "set_target", Tank: index, Value: value, Wrapped: err}
	}
	s.refresh()

	low, high := t.Band()
	s.logger.Info("target changed", "tank", t.Name(), "target", value, "low", low, "high", high)
	return nil
}

// InjectDisturbance arms a signed disturbance on one tank; it lands on the
// next tick.
func (s *Supervisor) InjectDisturbance(index int, magnitude float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inject("disturb", index, magnitude)
}

// InjectRandomDisturbance arms a disturbance drawn uniformly from
// [-disturbance_max, disturbance_max] and returns it.
func (s *Supervisor) InjectRandomDisturbance(index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tank("disturb_random", index, 0); err != nil {
		return 0, err
	}
	m := (2*s.rng.Float64() - 1) * s.disturbanceMax
	return m, s.inject("disturb_random", index, m)
}

// TriggerSpill arms a positive push drawn from [spill_min, spill_max],
// enough to drive a tank at its setpoint into overflow.
func (s *Supervisor) TriggerSpill(index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tank("spill", index, 0); err != nil {
		return 0, err
	}
	m := s.spillMin + s.rng.Float64()*(s.spillMax-s.spillMin)
	return m, s.inject("spill", index, m)
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Paused() bool { return s.State() == Paused }

func (s *Supervisor) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Supervisor) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

func (s *Supervisor) Seed() uint64 { return s.seed }

func (s *Supervisor) Len() int { return len(s.tanks) }

// PendingDisturbance reports the disturbance armed on a tank.
func (s *Supervisor) PendingDisturbance(index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tank("pending", index, 0)
	if err != nil {
		return 0, err
	}
	return t.Disturbance(), nil
}

func (s *Supervisor) inject(op string, index int, magnitude float64) error {
	t, err := s.tank(op, index, magnitude)
	if err != nil {
		return err
	}
	if err := t.InjectDisturbance(magnitude); err != nil {
		s.logger.Warn("disturbance rejected", "tank", t.Name(), "value", magnitude)
		return &plant.CommandError{Op: op, Tank: index, Value: magnitude, Wrapped: err}
	}
	s.logger.Info("disturbance armed", "tank", t.Name(), "value", magnitude, "op", op)
	return nil
}

func (s *Supervisor) tank(op string, index int, value float64) (*plant.Tank, error) {
	if index < 0 || index >= len(s.tanks) {
		s.logger.Warn("no such tank", "op", op, "index", index, "tanks", len(s.tanks))
		return nil, &plant.CommandError{Op: op, Tank: index, Value: value, Wrapped: plant.ErrIndexOutOfRange}
	}
	return s.tanks[index], nil
}

func (s *Supervisor) refresh() {
	if len(s.last) != len(s.tanks) {
		s.last = make([]plant.Snapshot, len(s.tanks))
	}
	for i, t := range s.tanks {
		s.last[i] = t.Snapshot(i)
	}
}

func (s *Supervisor) copyLast() []plant.Snapshot {
	out := make([]plant.Snapshot, len(s.last))
	copy(out, s.last)
	return out
}
