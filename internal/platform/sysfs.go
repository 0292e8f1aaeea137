package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultCPURoot is where the kernel exposes CPU topology.
const DefaultCPURoot = "/sys/devices/system/cpu"

func cpuPath(root string, cpu int, parts ...string) string {
	return filepath.Join(append([]string{root, fmt.Sprint("cpu", cpu)}, parts...)...)
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readUint(path string) (uint, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return uint(v), nil
}

func writeUint(path string, v uint) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(strconv.FormatUint(uint64(v), 10))
	return err
}

// parseCPUList parses a kernel cpu list such as "0-3,6" and returns the
// highest index plus one.
func parseCPUList(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty cpu list")
	}
	highest := -1
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}
		first, err := strconv.Atoi(lo)
		if err != nil {
			return 0, fmt.Errorf("bad cpu list %q: %w", s, err)
		}
		last, err := strconv.Atoi(hi)
		if err != nil {
			return 0, fmt.Errorf("bad cpu list %q: %w", s, err)
		}
		if first < 0 || last < first {
			return 0, fmt.Errorf("bad cpu list %q", s)
		}
		if last > highest {
			highest = last
		}
	}
	return highest + 1, nil
}
