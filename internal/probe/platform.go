package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/input"
	"github.com/sanverite/hotplugd/internal/platform"
)

// Config controls a single probe execution.
type Config struct {
	// CPURoot is the sysfs cpu directory. Empty selects platform.DefaultCPURoot.
	CPURoot string

	// InputGlob selects input devices to enumerate. Empty skips the input step.
	InputGlob string

	// Timeout bounds the entire probe. If zero, DefaultTimeout is used.
	Timeout time.Duration
}

const DefaultTimeout = 3 * time.Second

// ProbePlatform runs the topology, cpufreq and input checks in order. The
// summary carries partial results and warnings even when an error is returned.
func ProbePlatform(ctx context.Context, cfg Config) (core.PlatformSummary, error) {
	var (
		warns     []string
		latencies = make(map[string]int64, 3)
		summary   core.PlatformSummary
	)
	defer func() {
		summary.LatenciesMs = latencies
		summary.Warnings = warns
		summary.LastChecked = time.Now()
	}()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t0 := time.Now()
	cpus, err := platform.NewCPUs(cfg.CPURoot)
	if err != nil {
		latencies["topology"] = millisSince(t0)
		warns = append(warns, "topology unreadable: "+err.Error())
		return summary, err
	}
	summary.Possible = cpus.Possible()
	summary.HotplugOK = true
	for cpu := 0; cpu < cpus.Possible(); cpu++ {
		if cpus.IsOnline(cpu) {
			summary.Online++
		}
		if cpu > 0 && !cpus.Hotpluggable(cpu) {
			summary.HotplugOK = false
			warns = append(warns, fmt.Sprintf("cpu%d online attribute is not writable", cpu))
		}
	}
	latencies["topology"] = millisSince(t0)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("probe interrupted after topology: %w", err)
	}

	freqStart := time.Now()
	freq := platform.NewCPUFreq(cpus.Root())
	if _, err := freq.Policy(0); err != nil {
		warns = append(warns, "cpufreq unavailable: "+err.Error())
	} else {
		summary.CPUFreqOK = true
		if g, err := freq.Governor(0); err != nil {
			warns = append(warns, "governor unreadable: "+err.Error())
		} else {
			summary.Governor = g
		}
	}
	latencies["cpufreq"] = millisSince(freqStart)

	if cfg.InputGlob == "" {
		return summary, nil
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("probe interrupted after cpufreq: %w", err)
	}

	inputStart := time.Now()
	l := input.NewListener(cfg.InputGlob, func(input.Event) {}, logr.Discard())
	names, err := l.Connect()
	l.Close()
	latencies["input"] = millisSince(inputStart)
	switch {
	case errors.Is(err, input.ErrNoInputDevices):
		warns = append(warns, "no touch capable input devices, touch boost disabled")
	case err != nil:
		warns = append(warns, "input enumeration failed: "+err.Error())
	default:
		summary.InputDevices = len(names)
	}
	return summary, nil
}

// millisSince returns the elapsed milliseconds since t0, clamped at zero.
func millisSince(t0 time.Time) int64 {
	d := time.Since(t0)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
