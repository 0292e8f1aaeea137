package hotplug

import (
	"math"

	"github.com/sanverite/hotplugd/internal/core"
)

// FShift is the fixed-point resolution of the average running task count:
// one running task is 1<<FShift.
const FShift = 11

// Unbounded marks the last tier of a threshold table. It is never crossed.
const Unbounded uint = math.MaxUint32

// ThresholdTable holds, for each target core count n (index n-1), the load
// boundary above which n cores are not enough. The last entry is Unbounded.
type ThresholdTable []uint

var (
	// FullThresholds allows up to four cores.
	FullThresholds = ThresholdTable{5, 7, 9, Unbounded}
	// EcoThresholds allows up to two cores.
	EcoThresholds = ThresholdTable{3, Unbounded}
)

// Eco mode knobs are fixed; the full mode ones are operator tunables.
const (
	EcoHysteresis uint = 4
	EcoShift      uint = 1

	DefaultHysteresis uint = 8
	DefaultFineShift  uint = 3
)

// ClassifierParams are the inputs of Classify besides the sample.
type ClassifierParams struct {
	Table      ThresholdTable
	Hysteresis uint // added to the threshold of the held tier and above
	Shift      uint // threshold resolution, see ScaleThreshold
}

// ParamsFor returns the classifier parameters for mode.
func ParamsFor(mode core.Mode, t core.Tunables) ClassifierParams {
	if mode == core.ModeEco {
		return ClassifierParams{Table: EcoThresholds, Hysteresis: EcoHysteresis, Shift: EcoShift}
	}
	return ClassifierParams{Table: FullThresholds, Hysteresis: t.Hysteresis, Shift: t.FineShift}
}

// ScaleThreshold converts a threshold expressed in units of 1/2^shift running
// tasks into FShift fixed point. A shift at or above FShift leaves the
// threshold unscaled.
func ScaleThreshold(threshold uint64, shift uint) uint64 {
	if shift >= FShift {
		return threshold
	}
	return threshold << (FShift - shift)
}

// Classify returns the target core count for avgRunning. last is the value
// Classify returned on the previous cycle. The result is in 1..len(p.Table).
func Classify(avgRunning uint64, p ClassifierParams, last int) int {
	n := 1
	for ; n < len(p.Table); n++ {
		threshold := uint64(p.Table[n-1])
		if last <= n {
			threshold += uint64(p.Hysteresis)
		}
		if avgRunning <= ScaleThreshold(threshold, p.Shift) {
			break
		}
	}
	return n
}
