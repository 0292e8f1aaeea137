package api

import (
	"time"

	"github.com/sanverite/hotplugd/internal/core"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FromCoreSnapshot converts core.Snapshot to the public StatusResponse.
// It computes uptime based on StartedAt and current wall-clock time.
func FromCoreSnapshot(s core.Snapshot) StatusResponse {
	var uptime int64
	if !s.StartedAt.IsZero() {
		uptime = int64(TimeNow().Sub(s.StartedAt).Seconds())
	}

	c := s.Controller
	return StatusResponse{
		State:     string(s.AgentState),
		StartedAt: formatTime(s.StartedAt),
		UptimeSec: uptime,
		Warnings:  append([]string(nil), s.Warnings...),
		Tunables:  FromTunables(s.Tunables),
		Controller: ControllerView{
			Online:           c.OnlineCount,
			Possible:         c.PossibleCount,
			Target:           c.Target,
			Escalate:         c.Escalate,
			PersistCount:     c.PersistCount,
			BusyPersistCount: c.BusyPersistCount,
			SamplingPeriodMs: c.SamplingPeriod.Milliseconds(),
			Mode:             string(c.Mode),
			AvgRunning:       c.AvgRunning,
			QueueDepth:       c.QueueDepth,
			Cycles:           c.Cycles,
			LastCycle:        formatTime(c.LastCycle),
		},
		Suspend: SuspendView{
			Suspended:   s.Suspend.Suspended,
			SavedMaxKHz: cloneSaved(s.Suspend.SavedMaxKHz),
			Since:       formatTime(s.Suspend.Since),
		},
		Boost: BoostView{
			Count:     s.Boost.Count,
			Events:    s.Boost.Events,
			LastBoost: formatTime(s.Boost.LastBoost),
		},
		InputDevices: append([]string(nil), s.Inputs.Devices...),
		LastProbe:    FromPlatformSummary(s.LastProbe),
		GeneratedAt:  TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromTunables converts core.Tunables to the public TunablesView.
func FromTunables(t core.Tunables) TunablesView {
	return TunablesView{
		Active:          t.Active,
		EcoMode:         t.EcoMode,
		TouchBoost:      t.TouchBoost,
		ScreenOffMaxKHz: t.ScreenOffMaxKHz,
		Hysteresis:      t.Hysteresis,
		FineShift:       t.FineShift,
	}
}

// Apply copies the fields present in r onto t.
func (r TunablesRequest) Apply(t *core.Tunables) {
	if r.Active != nil {
		t.Active = *r.Active
	}
	if r.EcoMode != nil {
		t.EcoMode = *r.EcoMode
	}
	if r.TouchBoost != nil {
		t.TouchBoost = *r.TouchBoost
	}
	if r.ScreenOffMaxKHz != nil {
		t.ScreenOffMaxKHz = *r.ScreenOffMaxKHz
	}
	if r.Hysteresis != nil {
		t.Hysteresis = *r.Hysteresis
	}
	if r.FineShift != nil {
		t.FineShift = *r.FineShift
	}
}

// FromPlatformSummary converts core.PlatformSummary to the public PlatformView.
// Keeps slice/map fields immutable by cloning.
func FromPlatformSummary(p core.PlatformSummary) PlatformView {
	return PlatformView{
		HotplugOK:    p.HotplugOK,
		CPUFreqOK:    p.CPUFreqOK,
		Possible:     p.Possible,
		Online:       p.Online,
		Governor:     p.Governor,
		InputDevices: p.InputDevices,
		LatenciesMs:  cloneLatencies(p.LatenciesMs),
		LastChecked:  formatTime(p.LastChecked),
		Warnings:     append([]string(nil), p.Warnings...),
	}
}

func cloneSaved(in map[int]uint) map[int]uint {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]uint, len(in))
	for cpu, khz := range in {
		out[cpu] = khz
	}
	return out
}

func cloneLatencies(in map[string]int64) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
