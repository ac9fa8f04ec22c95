// Package scenario scripts operator commands against a supervisor so a run
// can be replayed headless and compared tick for tick.
package scenario

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/tankdcs/internal/plant"
	"github.com/san-kum/tankdcs/internal/supervisor"
	"gopkg.in/yaml.v3"
)

const (
	ActionSetTarget     = "set_target"
	ActionDisturb       = "disturb"
	ActionDisturbRandom = "disturb_random"
	ActionSpill         = "spill"
	ActionPause         = "pause"
	ActionResume        = "resume"
	ActionReset         = "reset"
)

var actions = []string{
	ActionSetTarget, ActionDisturb, ActionDisturbRandom, ActionSpill,
	ActionPause, ActionResume, ActionReset,
}

// Scenario is a scripted command sequence
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Ticks       int     `yaml:"ticks"`
	Dt          float64 `yaml:"dt"`
	Events      []Event `yaml:"events"`
}

// Event fires before the tick numbered At (0-based) is taken.
type Event struct {
	At     int     `yaml:"at"`
	Action string  `yaml:"action"`
	Tank   int     `yaml:"tank"`
	Value  float64 `yaml:"value"`
}

// EventError records a command the supervisor rejected.
type EventError struct {
	Event Event
	Err   error
}

func (e EventError) Error() string {
	return fmt.Sprintf("tick %d %s: %v", e.Event.At, e.Event.Action, e.Err)
}

func (e EventError) Unwrap() error { return e.Err }

type Outcome struct {
	TicksRun int
	Rejected []EventError
	Final    []plant.Snapshot
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if sc.Ticks <= 0 {
		return fmt.Errorf("scenario %q: ticks must be positive, got %d", sc.Name, sc.Ticks)
	}
	if sc.Dt < 0 {
		return fmt.Errorf("scenario %q: dt must not be negative", sc.Name)
	}
	for i, ev := range sc.Events {
		if !slices.Contains(actions, ev.Action) {
			return fmt.Errorf("scenario %q: event %d: unknown action %q", sc.Name, i, ev.Action)
		}
		if ev.At < 0 || ev.At >= sc.Ticks {
			return fmt.Errorf("scenario %q: event %d: tick %d outside [0, %d)", sc.Name, i, ev.At, sc.Ticks)
		}
	}
	return nil
}

// Run drives sup through the scenario. dt is used when the scenario does
// not set its own. Rejected commands are collected, not fatal.
func Run(ctx context.Context, sup *supervisor.Supervisor, sc *Scenario, dt float64) (*Outcome, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if sc.Dt > 0 {
		dt = sc.Dt
	}

	events := slices.Clone(sc.Events)
	slices.SortStableFunc(events, func(a, b Event) int { return a.At - b.At })

	out := &Outcome{}
	next := 0
	for i := 0; i < sc.Ticks; i++ {
		select {
		case <-ctx.Done():
			out.Final = sup.Snapshots()
			return out, ctx.Err()
		default:
		}

		for next < len(events) && events[next].At == i {
			if err := apply(sup, events[next]); err != nil {
				out.Rejected = append(out.Rejected, EventError{Event: events[next], Err: err})
			}
			next++
		}

		out.Final = sup.Tick(dt)
		out.TicksRun++
	}
	return out, nil
}

func apply(sup *supervisor.Supervisor, ev Event) error {
	switch ev.Action {
	case ActionSetTarget:
		return sup.SetTarget(ev.Tank, ev.Value)
	case ActionDisturb:
		return sup.InjectDisturbance(ev.Tank, ev.Value)
	case ActionDisturbRandom:
		_, err := sup.InjectRandomDisturbance(ev.Tank)
		return err
	case ActionSpill:
		_, err := sup.TriggerSpill(ev.Tank)
		return err
	case ActionPause:
		sup.SetPause(true)
	case ActionResume:
		sup.SetPause(false)
	case ActionReset:
		sup.ResetAll()
	}
	return nil
}
