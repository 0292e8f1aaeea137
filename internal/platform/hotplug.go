package platform

import (
	"errors"
	"fmt"
	"os"
)

// ErrPrimaryCore is returned when asked to take core 0 offline.
var ErrPrimaryCore = errors.New("core 0 cannot be taken offline")

// CPUs drives CPU hotplug through sysfs. It implements hotplug.Hotplug.
type CPUs struct {
	root     string
	possible int
}

// NewCPUs reads the possible mask under root. An empty root selects
// DefaultCPURoot.
func NewCPUs(root string) (*CPUs, error) {
	if root == "" {
		root = DefaultCPURoot
	}
	mask, err := readString(root + "/possible")
	if err != nil {
		return nil, fmt.Errorf("read possible cpus: %w", err)
	}
	n, err := parseCPUList(mask)
	if err != nil {
		return nil, fmt.Errorf("read possible cpus: %w", err)
	}
	return &CPUs{root: root, possible: n}, nil
}

// Root returns the sysfs directory the CPUs are read from.
func (c *CPUs) Root() string {
	return c.root
}

// Possible returns the number of addressable cores.
func (c *CPUs) Possible() int {
	return c.possible
}

// IsOnline reads cpuN/online. Cores without the attribute cannot be
// hotplugged and are always online; a core without a sysfs directory is
// not present.
func (c *CPUs) IsOnline(cpu int) bool {
	v, err := readUint(cpuPath(c.root, cpu, "online"))
	if err == nil {
		return v == 1
	}
	if _, statErr := os.Stat(cpuPath(c.root, cpu)); statErr != nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// Hotpluggable reports whether cpu exposes a writable online attribute.
func (c *CPUs) Hotpluggable(cpu int) bool {
	f, err := os.OpenFile(cpuPath(c.root, cpu, "online"), os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// BringOnline writes 1 to cpuN/online unless the core is already online.
func (c *CPUs) BringOnline(cpu int) error {
	if c.IsOnline(cpu) {
		return nil
	}
	if err := writeUint(cpuPath(c.root, cpu, "online"), 1); err != nil {
		return fmt.Errorf("bring cpu %d online: %w", cpu, err)
	}
	return nil
}

// TakeOffline writes 0 to cpuN/online unless the core is already offline.
func (c *CPUs) TakeOffline(cpu int) error {
	if cpu == 0 {
		return ErrPrimaryCore
	}
	if !c.IsOnline(cpu) {
		return nil
	}
	if err := writeUint(cpuPath(c.root, cpu, "online"), 0); err != nil {
		return fmt.Errorf("take cpu %d offline: %w", cpu, err)
	}
	return nil
}
