// Package plant models a single process unit of the tank farm.
//
// A [Tank] integrates a first-order mass balance
//
//	dL/dt = Qin - Qout
//
// one control cycle at a time. The net flow is produced by a deadband
// proportional correction that only acts while the level is outside the
// control band around the setpoint. Process noise and one-shot operator
// disturbances are layered on top, and the result is clamped to the
// physical range of the vessel.
//
// # Status
//
// [Tank.Status] classifies the deviation from the setpoint:
//
//	|dev| <= tol              Stable
//	|dev| <= tol*warningBand  Warning
//	otherwise                 Alarm
//
// # Thread Safety
//
// Tank values are NOT thread-safe. The supervisor serializes all access.
package plant
