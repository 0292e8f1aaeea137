package hotplug

import (
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/input"
	"github.com/sanverite/hotplugd/internal/metrics"
	"github.com/sanverite/hotplugd/internal/workqueue"
)

// TouchBoost brings core 1 online shortly after input activity. It runs on
// its own queue, independent of the sampling loop.
type TouchBoost struct {
	state   *core.State
	act     actuator
	hp      Hotplug
	delay   time.Duration
	clock   func() time.Time
	log     logr.Logger
	limiter *rate.Limiter

	queue *workqueue.Queue
	work  *workqueue.DelayedWork
}

// NewTouchBoost returns a handler that boosts delay after a qualifying event.
func NewTouchBoost(state *core.State, hp Hotplug, delay time.Duration, log logr.Logger) *TouchBoost {
	if delay <= 0 {
		delay = DefaultBoostDelay
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	log = log.WithName("boost")

	b := &TouchBoost{
		state:   state,
		act:     actuator{hp: hp, log: log},
		hp:      hp,
		delay:   delay,
		clock:   time.Now,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		queue:   workqueue.New(1),
	}
	b.work = workqueue.NewDelayedWork(b.queue, b.boost)
	return b
}

// HandleEvent is the input listener callback. Event contents are ignored;
// any event from a matched device counts.
func (b *TouchBoost) HandleEvent(ev input.Event) {
	metrics.InputEvents.Inc()
	b.state.RecordInputEvent()

	if !b.state.Tunables().TouchBoost {
		return
	}
	// A pending boost already covers this event.
	if b.work.Pending() || !b.limiter.Allow() {
		return
	}
	b.log.V(1).Info("touched", "device", ev.Device)
	b.work.Schedule(b.delay)
}

// Close stops the boost queue. Pending boosts are dropped.
func (b *TouchBoost) Close() {
	b.work.Cancel()
	b.queue.Close()
}

func (b *TouchBoost) boost() {
	if !b.state.Tunables().TouchBoost {
		return
	}
	if onlineCount(b.hp) >= 2 {
		return
	}
	if b.act.bringUp(2) > 0 {
		metrics.Boosts.Inc()
		b.state.RecordBoost(b.clock())
	}
}
