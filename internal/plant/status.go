package plant

import (
	"fmt"
	"math"
)

// Status is the derived health of a tank, worst last.
type Status int

const (
	Stable Status = iota
	Warning
	Alarm
)

func (s Status) String() string {
	switch s {
	case Stable:
		return "Stable"
	case Warning:
		return "Warning"
	case Alarm:
		return "ALARM"
	}
	return "Unknown"
}

// MarshalText lets snapshots carry the status by name in JSON and YAML.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classify maps a level to a status. Boundaries belong to the less severe
// class, and the result depends only on |level-target|.
func Classify(level, target, tolerance, warningBand float64) Status {
	dev := math.Abs(level - target)
	switch {
	case dev <= tolerance:
		return Stable
	case dev <= tolerance*warningBand:
		return Warning
	default:
		return Alarm
	}
}

// ParseStatus is the inverse of String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Stable":
		return Stable, nil
	case "Warning":
		return Warning, nil
	case "ALARM":
		return Alarm, nil
	}
	return 0, fmt.Errorf("plant: unknown status %q", s)
}

// UnmarshalText reads a status written by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
