// Package probe checks the platform primitives the controller depends on.
//
// # Overview
//
// ProbePlatform runs a bounded, sequential set of checks and returns a
// core.PlatformSummary. It does not retry and does not start goroutines.
//
// Steps:
//  1. Topology: read the possible mask, count online cores and verify that
//     every core above 0 exposes a writable online attribute.
//  2. Cpufreq: read the policy and governor of cpu0.
//  3. Input: enumerate touch capable input devices (skipped when no glob is
//     configured).
//
// Each step records its latency under "topology", "cpufreq" and "input".
//
// # Error Model
//
// Only an unreadable topology is an error, since the controller cannot run
// without it. Cpufreq and input problems are reported as warnings: the
// daemon keeps running without frequency capping or touch boost. The
// context deadline is checked between steps; a step already running is not
// interrupted.
package probe
