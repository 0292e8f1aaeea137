package input

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// DefaultGlob matches the evdev nodes.
const DefaultGlob = "/dev/input/event*"

type device interface {
	Name() string
	Capabilities() (Capabilities, error)
	// Read blocks until at least one event is available.
	Read() ([]Event, error)
	Close() error
}

// Func definitions for unit testing
var (
	openDeviceFunc = openDevice
	globFunc       = filepath.Glob
)

// Listener delivers events from touch capable devices to a Handler.
type Listener struct {
	glob    string
	handler Handler
	log     logr.Logger

	mu      sync.Mutex
	devices []device
}

// NewListener returns a listener over devices matching glob.
func NewListener(glob string, handler Handler, log logr.Logger) *Listener {
	if glob == "" {
		glob = DefaultGlob
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Listener{
		glob:    glob,
		handler: handler,
		log:     log.WithName("input"),
	}
}

// Connect opens every matching device and keeps the touch capable ones.
// It returns the names of the kept devices.
func (l *Listener) Connect() ([]string, error) {
	paths, err := globFunc(l.glob)
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}
	sort.Strings(paths)

	l.mu.Lock()
	defer l.mu.Unlock()

	var names []string
	for _, path := range paths {
		dev, err := openDeviceFunc(path)
		if err != nil {
			l.log.V(1).Info("skipping input device", "path", path, "error", err.Error())
			continue
		}
		caps, err := dev.Capabilities()
		if err != nil || !caps.Matches() {
			_ = dev.Close()
			continue
		}
		l.log.Info("input device connected", "path", path, "name", dev.Name())
		l.devices = append(l.devices, dev)
		names = append(names, dev.Name())
	}

	if len(l.devices) == 0 {
		return nil, ErrNoInputDevices
	}
	return names, nil
}

// Start reads every connected device until ctx is done, then closes them.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	devices := append([]device(nil), l.devices...)
	l.mu.Unlock()

	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev device) {
			defer wg.Done()
			l.readLoop(ctx, dev)
		}(dev)
	}

	<-ctx.Done()
	l.Close()
	wg.Wait()
	return nil
}

// Close closes every connected device.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, dev := range l.devices {
		_ = dev.Close()
	}
	l.devices = nil
}

func (l *Listener) readLoop(ctx context.Context, dev device) {
	for {
		events, err := dev.Read()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, errClosed) {
				l.log.Error(err, "input device read failed, dropping it", "name", dev.Name())
			}
			return
		}
		for _, ev := range events {
			l.handler(ev)
		}
	}
}
