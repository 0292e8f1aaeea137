package core

import (
	"errors"
	"sync"
	"time"
)

// AgentState represents the lifecycle state of the daemon.
// The intended transitions:
//
// inactive  -> starting | active
// starting  -> active | error | inactive
// active    -> suspended | stopping | error
// suspended -> active | stopping | error
// stopping  -> inactive | error
// error     -> inactive | starting
//
// Transitions outside this set are rejected by SetAgentState.
type AgentState string

const (
	StateInactive  AgentState = "inactive"
	StateStarting  AgentState = "starting"
	StateActive    AgentState = "active"
	StateSuspended AgentState = "suspended"
	StateStopping  AgentState = "stopping"
	StateError     AgentState = "error"
)

// Mode selects the classifier threshold table and resolution.
type Mode string

const (
	ModeFull Mode = "full"
	ModeEco  Mode = "eco"
)

// Tunables are the operator-writable knobs. Values are taken as written.
type Tunables struct {
	Active          bool // master enable for the sampling loop
	EcoMode         bool // conservative table, at most two cores
	TouchBoost      bool // bring a second core up on input activity
	ScreenOffMaxKHz uint // max frequency cap while suspended, 0 disables the cap
	Hysteresis      uint // full-mode classifier hysteresis margin
	FineShift       uint // full-mode classifier resolution shift
}

// Mode returns the operating mode selected by the tunables.
func (t Tunables) Mode() Mode {
	if t.EcoMode {
		return ModeEco
	}
	return ModeFull
}

// ControllerSnapshot is the controller's view after its most recent cycle.
type ControllerSnapshot struct {
	OnlineCount      int           // cores online when the cycle sampled
	PossibleCount    int           // cores in the topology
	Target           int           // merged target core count
	Escalate         bool          // trend detector decision
	PersistCount     uint          // down-step debounce counter
	BusyPersistCount uint          // busy period extension counter
	SamplingPeriod   time.Duration // delay until the next cycle
	Mode             Mode          // mode used by the cycle
	AvgRunning       uint64        // fixed-point average running tasks
	QueueDepth       uint          // run queue depth (x10)
	Cycles           uint64        // cycles completed since start
	LastCycle        time.Time     // wall clock of the last cycle
}

// SuspendSnapshot describes the display-off state.
type SuspendSnapshot struct {
	Suspended   bool
	SavedMaxKHz map[int]uint // per core max frequency captured at suspend
	Since       time.Time    // time of the last suspend or resume
}

// BoostSnapshot counts touch boosts.
type BoostSnapshot struct {
	Count     uint64    // boosts that brought a core online
	Events    uint64    // qualifying input events seen
	LastBoost time.Time // wall clock of the last boost
}

// InputSnapshot lists input devices the touch listener is connected to.
type InputSnapshot struct {
	Devices []string
}

// PlatformSummary is a condensed view of the last platform probe.
type PlatformSummary struct {
	HotplugOK    bool             // cpu online attributes readable and writable
	CPUFreqOK    bool             // cpufreq policy readable for cpu0
	Possible     int              // cores in the possible mask
	Online       int              // cores online at probe time
	Governor     string           // cpufreq governor of cpu0
	InputDevices int              // touch capable input devices found
	LatenciesMs  map[string]int64 // e.g., "topology", "cpufreq", "input"
	LastChecked  time.Time        // wall clock time of probe
	Warnings     []string         // non-fatal anomalies observed during probe
}

// Snapshot is a threadsafe read model returned to the API layer.
// All nested slices/maps are returned as defensive copies, so callers
// may safely retain value without additional locking.
type Snapshot struct {
	AgentState AgentState
	StartedAt  time.Time
	Warnings   []string
	Tunables   Tunables
	Controller ControllerSnapshot
	Suspend    SuspendSnapshot
	Boost      BoostSnapshot
	Inputs     InputSnapshot
	LastProbe  PlatformSummary
}

// State holds mutable daemon state with synchronization.
// Use the provided methods to mutate; callers should never take the lock directly.
type State struct {
	mu         sync.RWMutex
	agent      AgentState
	startedAt  time.Time
	warnings   []string
	tunables   Tunables
	controller ControllerSnapshot
	suspend    SuspendSnapshot
	boost      BoostSnapshot
	inputs     InputSnapshot
	lastProbe  PlatformSummary
}

// NewState constructs a default-inactive state with the given tunables.
func NewState(t Tunables) *State {
	return &State{
		agent:    StateInactive,
		tunables: t,
	}
}

// GetSnapshot returns a deep copy safe for concurrent reads.
func (s *State) GetSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		AgentState: s.agent,
		StartedAt:  s.startedAt,
		Warnings:   append([]string(nil), s.warnings...),
		Tunables:   s.tunables,
		Controller: s.controller,
		Suspend: SuspendSnapshot{
			Suspended:   s.suspend.Suspended,
			SavedMaxKHz: cloneFreqs(s.suspend.SavedMaxKHz),
			Since:       s.suspend.Since,
		},
		Boost:     s.boost,
		Inputs:    InputSnapshot{Devices: append([]string(nil), s.inputs.Devices...)},
		LastProbe: clonePlatform(s.lastProbe),
	}
}

// AgentState returns the current lifecycle state.
func (s *State) AgentState() AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agent
}

// AppendWarning adds a non-fatal warning to the state.
func (s *State) AppendWarning(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// Tunables returns a copy of the current operator tunables.
func (s *State) Tunables() Tunables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tunables
}

// UpdateTunables applies fn to the tunables under the lock and returns the
// resulting values. No validation is performed.
func (s *State) UpdateTunables(fn func(*Tunables)) Tunables {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.tunables)
	return s.tunables
}

// UpdateController replaces the controller snapshot.
func (s *State) UpdateController(c ControllerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller = c
}

// UpdateSuspend replaces the suspend snapshot. The saved frequency map is copied.
func (s *State) UpdateSuspend(p SuspendSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspend = SuspendSnapshot{
		Suspended:   p.Suspended,
		SavedMaxKHz: cloneFreqs(p.SavedMaxKHz),
		Since:       p.Since,
	}
}

// RecordInputEvent counts a qualifying input event.
func (s *State) RecordInputEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boost.Events++
}

// RecordBoost counts a boost that brought a core online at the given time.
func (s *State) RecordBoost(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boost.Count++
	s.boost.LastBoost = at
}

// UpdateInputs replaces the list of connected input devices.
func (s *State) UpdateInputs(p InputSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = InputSnapshot{Devices: append([]string(nil), p.Devices...)}
}

// UpdateProbe replaces the last probe summary with a new value.
// Slices/maps are copied defensively.
func (s *State) UpdateProbe(p PlatformSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProbe = clonePlatform(p)
}

// ErrInvalidTransition is returned when SetAgentState receives an illegal transition.
var ErrInvalidTransition = errors.New("invalid agent state transition")

// SetAgentState transitions the agent to the next state, enforcing a simple
// state machine. On the first transition to Active, startedAt is set. When
// transitioning to Inactive, startedAt is cleared.
//
// Returns ErrInvalidTransition if the (current -> next) edge is not allowed.
func (s *State) SetAgentState(next AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.agent
	if cur == next {
		return nil
	}

	if !allowedTransition(cur, next) {
		return ErrInvalidTransition
	}

	switch next {
	case StateActive:
		if s.startedAt.IsZero() {
			s.startedAt = time.Now()
		}
	case StateInactive:
		s.startedAt = time.Time{}
	}

	s.agent = next
	return nil
}

func allowedTransition(cur, next AgentState) bool {
	switch cur {
	case StateInactive:
		return next == StateStarting || next == StateActive
	case StateStarting:
		return next == StateActive || next == StateError || next == StateInactive
	case StateActive:
		return next == StateSuspended || next == StateStopping || next == StateError
	case StateSuspended:
		return next == StateActive || next == StateStopping || next == StateError
	case StateStopping:
		return next == StateInactive || next == StateError
	case StateError:
		return next == StateInactive || next == StateStarting
	default:
		return false
	}
}

func cloneFreqs(in map[int]uint) map[int]uint {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]uint, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clonePlatform(p PlatformSummary) PlatformSummary {
	out := p
	if p.LatenciesMs != nil {
		out.LatenciesMs = make(map[string]int64, len(p.LatenciesMs))
		for k, v := range p.LatenciesMs {
			out.LatenciesMs[k] = v
		}
	}
	out.Warnings = append([]string(nil), p.Warnings...)
	return out
}
