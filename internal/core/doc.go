// Package core owns the daemon's shared state and lifecycle.
//
// # Overview
//
// The core package models the daemon as a small lifecycle state machine plus
// a set of snapshots published by the subsystems (hotplug controller, suspend
// controller, touch boost, input listener, platform probe), and the operator
// tunables read by the controller at the start of every cycle. It provides a
// single concurrency boundary: methods on *State.
//
// Concurrency & Safety
//
// State is safe for concurrent use. Read access is via GetSnapshot(), which
// returns a deep copy suitable for use without further locking, and via
// Tunables(), which returns a value copy. Mutation is done via narrow
// UpdateXxx methods and SetAgentState(), each holding the internal lock
// briefly. Callers must never take the lock directly.
//
// # Lifecycle
//
// AgentState reflects the coarse lifecycle:
//
//	inactive  -> starting | active
//	starting  -> active | error | inactive
//	active    -> suspended | stopping | error
//	suspended -> active | stopping | error
//	stopping  -> inactive | error
//	error     -> inactive | starting
//
// SetAgentState enforces these transitions. On the first transition to
// Active, startedAt is set. Transition to Inactive clears startedAt. The
// API derives uptime from it.
//
// # Tunables
//
// Tunables are the operator-facing knobs (active, eco mode, touch boost,
// screen-off frequency cap, classifier hysteresis and fine shift). Writes are
// accepted as-is; there is no range validation. The controller copies them
// once per cycle, so a write takes effect on the next cycle.
//
// # Snapshots
//
//   - ControllerSnapshot: online/target cores, trend decision, persist counters,
//     sampling period, mode, cycle count
//   - SuspendSnapshot: suspended flag and saved per-core max frequencies
//   - BoostSnapshot: touch boost count and last boost time
//   - InputSnapshot: connected input devices
//   - PlatformSummary: last platform probe, with timings and warnings
//
// Update methods replace the entire snapshot atomically to avoid partial-state
// ambiguity. The API layer consumes snapshot copies to serve JSON.
package core
