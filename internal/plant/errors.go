package plant

import (
	"errors"
	"fmt"
)

// Domain errors for tank commands and configuration.
var (
	// ErrInvalidTarget indicates a setpoint outside the configured bounds.
	ErrInvalidTarget = errors.New("plant: target outside configured bounds")

	// ErrInvalidDisturbance indicates a NaN or infinite disturbance magnitude.
	ErrInvalidDisturbance = errors.New("plant: disturbance must be finite")

	// ErrIndexOutOfRange indicates a command addressed a tank that does not exist.
	ErrIndexOutOfRange = errors.New("plant: tank index out of range")

	// ErrInvalidConfiguration indicates parameters the simulation cannot start with.
	ErrInvalidConfiguration = errors.New("plant: invalid configuration")
)

// CommandError wraps a rejected operator command with the tank it addressed.
type CommandError struct {
	Op      string
	Tank    int
	Value   float64
	Wrapped error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s tank %d (%.2f): %v", e.Op, e.Tank, e.Value, e.Wrapped)
}

func (e *CommandError) Unwrap() error {
	return e.Wrapped
}
