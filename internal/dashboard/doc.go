// Package dashboard is the terminal front end of the tank farm.
//
// It owns no simulation state. A bubbletea tick drives
// [supervisor.Supervisor.Tick] at the configured cadence, the returned
// snapshots are rendered as one card per tank, and key presses are
// forwarded as operator commands. Gauges ease toward the latest level on a
// separate frame clock; trends and numbers always show the plant value.
//
// # Key Bindings
//
//	Space      - Pause/Resume simulation
//	R          - Reset all tanks
//	Tab/←→     - Select tank (1-9 jump)
//	↑↓ / K J   - Raise/lower setpoint of selected tank
//	D          - Inject random disturbance
//	+ / -      - Inject fixed positive/negative disturbance
//	S          - Trigger spill sample
//	T          - Cycle color themes
//	?          - Toggle help
//	Q          - Quit
package dashboard
