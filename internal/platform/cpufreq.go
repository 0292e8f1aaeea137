package platform

import (
	"errors"
	"fmt"

	"github.com/sanverite/hotplugd/internal/hotplug"
)

const userspaceGovernor = "userspace"

// ErrUnsupported is returned by SetCurrent when the core's governor does not
// accept direct frequency requests.
var ErrUnsupported = errors.New("scaling_setspeed requires the userspace governor")

// CPUFreq reads and writes cpufreq policies through sysfs. It implements
// hotplug.Frequency.
type CPUFreq struct {
	root string
}

// NewCPUFreq returns a CPUFreq rooted at root, or DefaultCPURoot when empty.
func NewCPUFreq(root string) *CPUFreq {
	if root == "" {
		root = DefaultCPURoot
	}
	return &CPUFreq{root: root}
}

func (f *CPUFreq) path(cpu int, attr string) string {
	return cpuPath(f.root, cpu, "cpufreq", attr)
}

// Governor returns the scaling governor of cpu.
func (f *CPUFreq) Governor(cpu int) (string, error) {
	g, err := readString(f.path(cpu, "scaling_governor"))
	if err != nil {
		return "", fmt.Errorf("failed to read governor for cpu %d: %w", cpu, err)
	}
	return g, nil
}

// Policy reads the min, max and current frequency of cpu.
func (f *CPUFreq) Policy(cpu int) (hotplug.FreqPolicy, error) {
	var p hotplug.FreqPolicy
	var err error
	if p.MinKHz, err = readUint(f.path(cpu, "scaling_min_freq")); err != nil {
		return p, fmt.Errorf("failed to read min frequency for cpu %d: %w", cpu, err)
	}
	if p.MaxKHz, err = readUint(f.path(cpu, "scaling_max_freq")); err != nil {
		return p, fmt.Errorf("failed to read max frequency for cpu %d: %w", cpu, err)
	}
	if p.CurKHz, err = readUint(f.path(cpu, "scaling_cur_freq")); err != nil {
		return p, fmt.Errorf("failed to read current frequency for cpu %d: %w", cpu, err)
	}
	return p, nil
}

// SetPolicy writes min and max. The kernel rejects a max below the current
// min, so when lowering below it the min is written first.
func (f *CPUFreq) SetPolicy(cpu int, minKHz, maxKHz uint) error {
	curMin, err := readUint(f.path(cpu, "scaling_min_freq"))
	if err != nil {
		return fmt.Errorf("failed to read min frequency for cpu %d: %w", cpu, err)
	}

	writeMin := func() error {
		if err := writeUint(f.path(cpu, "scaling_min_freq"), minKHz); err != nil {
			return fmt.Errorf("failed to set min frequency for cpu %d: %w", cpu, err)
		}
		return nil
	}
	writeMax := func() error {
		if err := writeUint(f.path(cpu, "scaling_max_freq"), maxKHz); err != nil {
			return fmt.Errorf("failed to set max frequency for cpu %d: %w", cpu, err)
		}
		return nil
	}

	order := []func() error{writeMax, writeMin}
	if maxKHz < curMin {
		order = []func() error{writeMin, writeMax}
	}
	for _, write := range order {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

// SetCurrent requests khz through scaling_setspeed. Only the userspace
// governor accepts it; other governors yield ErrUnsupported.
func (f *CPUFreq) SetCurrent(cpu int, khz uint) error {
	governor, err := f.Governor(cpu)
	if err != nil {
		return err
	}
	if governor != userspaceGovernor {
		return fmt.Errorf("cpu %d governor %q: %w", cpu, governor, ErrUnsupported)
	}
	if err := writeUint(f.path(cpu, "scaling_setspeed"), khz); err != nil {
		return fmt.Errorf("failed to set frequency for cpu %d: %w", cpu, err)
	}
	return nil
}
