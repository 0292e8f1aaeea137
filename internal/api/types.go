package api

import "time"

// Public JSON types returned by the API. They are decoupled from the core
// types so internal refactors do not change the wire format.

// StatusResponse is the top-level payload for GET /v1/status.
type StatusResponse struct {
	State        string         `json:"state"`
	StartedAt    string         `json:"started_at"`
	UptimeSec    int64          `json:"uptime_sec"`
	Warnings     []string       `json:"warnings"`
	Tunables     TunablesView   `json:"tunables"`
	Controller   ControllerView `json:"controller"`
	Suspend      SuspendView    `json:"suspend"`
	Boost        BoostView      `json:"boost"`
	InputDevices []string       `json:"input_devices"`
	LastProbe    PlatformView   `json:"last_probe"`
	GeneratedAt  string         `json:"generated_at"`
}

// TunablesView is the operator tunable set, also the GET/PUT /v1/tunables body.
type TunablesView struct {
	Active          bool `json:"active"`
	EcoMode         bool `json:"eco_mode"`
	TouchBoost      bool `json:"touch_boost"`
	ScreenOffMaxKHz uint `json:"screen_off_max_khz"`
	Hysteresis      uint `json:"hysteresis"`
	FineShift       uint `json:"fine_shift"`
}

// TunablesRequest is a partial update; absent fields are left unchanged.
type TunablesRequest struct {
	Active          *bool `json:"active"`
	EcoMode         *bool `json:"eco_mode"`
	TouchBoost      *bool `json:"touch_boost"`
	ScreenOffMaxKHz *uint `json:"screen_off_max_khz"`
	Hysteresis      *uint `json:"hysteresis"`
	FineShift       *uint `json:"fine_shift"`
}

// ControllerView is the controller state after its last cycle.
type ControllerView struct {
	Online           int    `json:"online"`
	Possible         int    `json:"possible"`
	Target           int    `json:"target"`
	Escalate         bool   `json:"escalate"`
	PersistCount     uint   `json:"persist_count"`
	BusyPersistCount uint   `json:"busy_persist_count"`
	SamplingPeriodMs int64  `json:"sampling_period_ms"`
	Mode             string `json:"mode"`
	AvgRunning       uint64 `json:"avg_running"`
	QueueDepth       uint   `json:"queue_depth"`
	Cycles           uint64 `json:"cycles"`
	LastCycle        string `json:"last_cycle"`
}

// SuspendView describes the display-off state.
type SuspendView struct {
	Suspended   bool         `json:"suspended"`
	SavedMaxKHz map[int]uint `json:"saved_max_khz,omitempty"`
	Since       string       `json:"since,omitempty"`
}

// SuspendRequest is the PUT /v1/suspended body.
type SuspendRequest struct {
	Suspended *bool `json:"suspended"`
}

// BoostView counts touch boosts.
type BoostView struct {
	Count     uint64 `json:"count"`
	Events    uint64 `json:"events"`
	LastBoost string `json:"last_boost,omitempty"`
}

// PlatformView summarizes the last platform probe.
type PlatformView struct {
	HotplugOK    bool             `json:"hotplug_ok"`
	CPUFreqOK    bool             `json:"cpufreq_ok"`
	Possible     int              `json:"possible"`
	Online       int              `json:"online"`
	Governor     string           `json:"governor"`
	InputDevices int              `json:"input_devices"`
	LatenciesMs  map[string]int64 `json:"latencies_ms"`
	LastChecked  string           `json:"last_checked"`
	Warnings     []string         `json:"warnings"`
}

// APIError is a standard error payload.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TimeNow abstracts time for tests; overridden in tests.
var TimeNow = func() time.Time { return time.Now() }
