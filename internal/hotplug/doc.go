// Package hotplug implements the adaptive core online/offline controller.
//
// # Overview
//
// Every cycle the Controller samples load, classifies it into a target core
// count, consults the trend detector for sustained queue pressure, merges the
// two and drives the result through the platform hotplug primitive. The cycle
// re-arms itself on a dedicated work queue with a period chosen by the busy
// period bookkeeping.
//
// # Classification
//
// Classify walks a mode-dependent ThresholdTable. A tier that was held on the
// previous cycle, or any tier above it, gets a hysteresis margin added to its
// threshold. Thresholds are scaled to the FShift fixed-point resolution by
// ScaleThreshold; the scaling shift and the hysteresis margin are the only
// knobs. Eco mode uses a two entry table so its target never exceeds two.
//
// # Trend detection
//
// TrendState accumulates the time spent with the run queue depth in one tail
// of the per core count TrendThresholds. Sustained pressure above the
// escalate depth recommends one extra core for two or three online cores.
// Landing in the middle zone resets the accumulator and keeps the previous
// decision.
//
// # Actuation
//
// Down steps to a single core are debounced by a persist counter. Up steps
// are immediate. Offlining always proceeds from the highest core index down
// and never touches core 0; onlining fills the lowest missing index first.
// Requests toward a core already in the desired state are not issued.
//
// # Suspend, resume and touch boost
//
// Suspend marks the controller suspended, drains the main loop queue, caps
// the max frequency of every online core when a screen-off cap is configured
// and takes every core but core 0 offline. Resume brings cores back, restores
// the saved policies of the cores that are online and re-arms the main loop
// promptly. It also raises the current frequency of online cores to their max
// and puts the previous frequency back after WakeupBoostWindow. Saved policies
// of cores that stay offline are written by the first cycle that finds them
// online. Cycles that run while suspended keep their busy period
// bookkeeping but issue no hotplug requests.
//
// TouchBoost runs on its own queue and brings core 1 online shortly after
// input activity when fewer than two cores are online.
package hotplug
