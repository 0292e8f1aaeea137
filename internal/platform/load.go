package platform

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/sanverite/hotplugd/internal/hotplug"
)

// Load poller defaults.
const (
	DefaultLoadInterval = 20 * time.Millisecond
	DefaultDepthWindow  = 8
)

// Func definitions for unit testing
var miscFunc = load.MiscWithContext

// LoadPoller samples procs_running at a fixed interval. It implements
// hotplug.LoadMetrics.
type LoadPoller struct {
	interval time.Duration
	log      logr.Logger

	mu sync.Mutex
	// accumulated since the last AverageRunning call
	sum   uint64
	count uint64
	last  uint64
	// ring of recent samples for QueueDepth
	window []uint
	next   int
	filled bool
}

// NewLoadPoller returns a poller sampling every interval and averaging the
// queue depth over window samples.
func NewLoadPoller(interval time.Duration, window int, log logr.Logger) *LoadPoller {
	if interval <= 0 {
		interval = DefaultLoadInterval
	}
	if window <= 0 {
		window = DefaultDepthWindow
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &LoadPoller{
		interval: interval,
		log:      log.WithName("load"),
		window:   make([]uint, window),
	}
}

// Start polls until ctx is done.
func (p *LoadPoller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failing := false
	for {
		err := p.poll(ctx)
		switch {
		case err != nil && !failing:
			p.log.Error(err, "failed to read scheduler statistics")
			failing = true
		case err == nil && failing:
			p.log.Info("scheduler statistics readable again")
			failing = false
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *LoadPoller) poll(ctx context.Context) error {
	misc, err := miscFunc(ctx)
	if err != nil {
		return err
	}
	// procs_running includes the reader itself
	running := misc.ProcsRunning - 1
	if running < 0 {
		running = 0
	}
	p.record(uint(running))
	return nil
}

func (p *LoadPoller) record(running uint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sum += uint64(running) << hotplug.FShift
	p.count++

	p.window[p.next] = running
	p.next = (p.next + 1) % len(p.window)
	if p.next == 0 {
		p.filled = true
	}
}

// AverageRunning returns the mean running task count since the previous
// call in FShift fixed point and starts a new window. With no samples in
// between it repeats the previous value.
func (p *LoadPoller) AverageRunning() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 {
		return p.last
	}
	p.last = p.sum / p.count
	p.sum, p.count = 0, 0
	return p.last
}

// QueueDepth returns the average of the recent samples scaled by ten.
func (p *LoadPoller) QueueDepth() uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.next
	if p.filled {
		n = len(p.window)
	}
	if n == 0 {
		return 0
	}
	var total uint
	for _, v := range p.window[:n] {
		total += v
	}
	return total * 10 / uint(n)
}
