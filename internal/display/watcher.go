// Package display turns backlight power changes into suspend and resume
// requests.
package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Suspender receives display power transitions.
type Suspender interface {
	SetSuspended(on bool)
}

// Watcher polls a backlight device directory under /sys/class/backlight.
type Watcher struct {
	dir      string
	interval time.Duration
	target   Suspender
	log      logr.Logger

	off   bool
	known bool
}

// NewWatcher returns a watcher for the backlight device at dir.
func NewWatcher(dir string, interval time.Duration, target Suspender, log logr.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Watcher{dir: dir, interval: interval, target: target, log: log.WithName("display")}
}

// Check verifies that the backlight state is readable.
func (w *Watcher) Check() error {
	_, err := w.displayOff()
	return err
}

// Start polls until ctx is done. A display that is already off when polling
// starts is reported as a transition.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.poll()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) poll() {
	off, err := w.displayOff()
	if err != nil {
		w.log.V(1).Info("backlight unreadable", "dir", w.dir, "error", err.Error())
		return
	}
	if w.known && off == w.off {
		return
	}
	first := !w.known
	w.known, w.off = true, off
	if first && !off {
		return
	}

	w.log.Info("display power changed", "off", off)
	w.target.SetSuspended(off)
}

// displayOff prefers bl_power (0 is unblanked) and falls back to a zero
// brightness.
func (w *Watcher) displayOff() (bool, error) {
	v, err := readInt(filepath.Join(w.dir, "bl_power"))
	if err == nil {
		return v != 0, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	v, err = readInt(filepath.Join(w.dir, "brightness"))
	if err != nil {
		return false, err
	}
	return v == 0, nil
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
