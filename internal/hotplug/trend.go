package hotplug

import "time"

// TrendThreshold is the run queue depth pair and hold times for one online
// core count. Depths are x10.
type TrendThreshold struct {
	EscalateDepth   uint
	EscalateAfter   time.Duration
	DeescalateDepth uint
	DeescalateAfter time.Duration
}

// MaxTrendCores is the core count at and above which the trend detector
// never escalates.
const MaxTrendCores = 4

// TrendThresholds is indexed by online core count.
var TrendThresholds = [...]TrendThreshold{
	1: {EscalateDepth: 19, EscalateAfter: 140 * time.Millisecond, DeescalateDepth: 30, DeescalateAfter: 0},
	2: {EscalateDepth: 19, EscalateAfter: 140 * time.Millisecond, DeescalateDepth: 11, DeescalateAfter: 190 * time.Millisecond},
	3: {EscalateDepth: 19, EscalateAfter: 140 * time.Millisecond, DeescalateDepth: 11, DeescalateAfter: 190 * time.Millisecond},
	4: {EscalateDepth: 0, EscalateAfter: 0, DeescalateDepth: 11, DeescalateAfter: 190 * time.Millisecond},
}

// TrendState is the trend detector's memory between cycles.
type TrendState struct {
	Accumulated time.Duration // time since the last reset
	LastSample  *time.Time    // nil until the first Update
	Escalate    bool          // last emitted decision
}

// Update folds one sample into the state and returns the new state. The
// decision is in the Escalate field of the result.
func (s TrendState) Update(now time.Time, depth uint, online int) TrendState {
	next := s
	if s.LastSample != nil {
		if elapsed := now.Sub(*s.LastSample); elapsed > 0 {
			next.Accumulated += elapsed
		}
	}
	at := now
	next.LastSample = &at

	if online < 1 || online >= len(TrendThresholds) {
		next.Accumulated = 0
		return next
	}

	th := TrendThresholds[online]
	switch {
	case online < MaxTrendCores && depth >= th.EscalateDepth:
		if next.Accumulated >= th.EscalateAfter {
			next.Escalate = true
		}
	case depth <= th.DeescalateDepth:
		if next.Accumulated >= th.DeescalateAfter {
			next.Escalate = false
		}
	default:
		next.Accumulated = 0
	}
	return next
}

// mergeEscalation adds the escalation core for two or three online cores.
func mergeEscalation(target int, escalate bool, online int) int {
	if !escalate {
		return target
	}
	switch online {
	case 2:
		return 3
	case 3:
		return 4
	}
	return target
}
