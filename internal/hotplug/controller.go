package hotplug

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/metrics"
	"github.com/sanverite/hotplugd/internal/workqueue"
)

// Debounce constants, in cycles.
const (
	DualCorePersistence uint = 7
	BusyPersistence     uint = 10
	CPUDownFactor       uint = 2
)

// Default delays.
const (
	DefaultSamplingPeriod     = 1000 * time.Millisecond
	DefaultBusySamplingPeriod = 500 * time.Millisecond
	DefaultStartDelay         = 10 * time.Millisecond
	DefaultResumeDelay        = 10 * time.Millisecond
	DefaultBoostDelay         = 10 * time.Millisecond
	DefaultWakeupBoostWindow  = 200 * time.Millisecond
)

// Options configures a Controller. Zero values take the defaults above.
type Options struct {
	SamplingPeriod     time.Duration
	BusySamplingPeriod time.Duration
	StartDelay         time.Duration
	ResumeDelay        time.Duration
	// WakeupBoostWindow is how long cores stay at max frequency after resume.
	WakeupBoostWindow time.Duration
	Clock             func() time.Time
	Logger            logr.Logger
}

func (o Options) withDefaults() Options {
	if o.SamplingPeriod <= 0 {
		o.SamplingPeriod = DefaultSamplingPeriod
	}
	if o.BusySamplingPeriod <= 0 {
		o.BusySamplingPeriod = DefaultBusySamplingPeriod
	}
	if o.StartDelay <= 0 {
		o.StartDelay = DefaultStartDelay
	}
	if o.ResumeDelay <= 0 {
		o.ResumeDelay = DefaultResumeDelay
	}
	if o.WakeupBoostWindow <= 0 {
		o.WakeupBoostWindow = DefaultWakeupBoostWindow
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}

// Controller owns the sampling loop and the suspend/resume transitions.
type Controller struct {
	state   *core.State
	sampler *Sampler
	hotplug Hotplug
	freq    Frequency
	act     actuator
	log     logr.Logger
	opts    Options

	queue   *workqueue.Queue
	work    *workqueue.DelayedWork
	unboost *workqueue.DelayedWork

	// transition serializes Suspend and Resume.
	transition sync.Mutex

	// mu guards the fields below. Platform requests are never issued with mu held.
	mu               sync.Mutex
	suspended        bool
	persistCount     uint
	busyPersistCount uint
	samplingPeriod   time.Duration
	lastTarget       int
	trend            TrendState
	saved            map[int]FreqPolicy
	boosted          map[int]uint
	cycles           uint64
}

// NewController wires a controller. Nothing runs until Start.
func NewController(state *core.State, hp Hotplug, freq Frequency, load LoadMetrics, opts Options) *Controller {
	if state == nil {
		panic("hotplug.NewController: state is nil")
	}
	opts = opts.withDefaults()
	log := opts.Logger.WithName("controller")

	c := &Controller{
		state:          state,
		sampler:        NewSampler(load, hp),
		hotplug:        hp,
		freq:           freq,
		act:            actuator{hp: hp, log: log},
		log:            log,
		opts:           opts,
		queue:          workqueue.New(1),
		samplingPeriod: opts.SamplingPeriod,
	}
	c.work = workqueue.NewDelayedWork(c.queue, c.cycle)
	c.unboost = workqueue.NewDelayedWork(c.queue, c.endWakeupBoost)
	return c
}

// Start arms the sampling loop and blocks until ctx is done, then stops the
// loop and waits for an in-flight cycle to finish.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.state.SetAgentState(core.StateActive); err != nil {
		return err
	}
	c.log.Info("starting", "possible", c.hotplug.Possible(), "samplingPeriod", c.opts.SamplingPeriod)
	c.work.Schedule(c.opts.StartDelay)

	<-ctx.Done()
	c.stop()
	return nil
}

func (c *Controller) stop() {
	c.log.V(1).Info("stopping")
	c.work.Cancel()
	c.unboost.Cancel()
	c.queue.Close()

	if err := c.state.SetAgentState(core.StateStopping); err != nil {
		c.log.V(1).Info("lifecycle transition rejected", "to", core.StateStopping, "error", err.Error())
		return
	}
	_ = c.state.SetAgentState(core.StateInactive)
	c.log.Info("stopped")
}

type actionKind int

const (
	actNone actionKind = iota
	actUp              // bring cores online until n are online
	actDown            // take cores above index n offline
)

type action struct {
	kind actionKind
	n    int
}

// cycle runs one sampling cycle and re-arms the loop.
func (c *Controller) cycle() {
	tun := c.state.Tunables()
	if !tun.Active {
		c.work.Schedule(c.period())
		return
	}

	mode := tun.Mode()
	sample := c.sampler.Sample()
	now := c.opts.Clock()

	c.mu.Lock()
	classified := Classify(sample.AvgRunning, ParamsFor(mode, tun), c.lastTarget)
	c.lastTarget = classified

	escalate := false
	if mode == core.ModeFull && sample.Online >= 1 && sample.Online < MaxTrendCores {
		c.trend = c.trend.Update(now, sample.QueueDepth, sample.Online)
		escalate = c.trend.Escalate
	}
	target := mergeEscalation(classified, escalate, sample.Online)

	c.updateBusyPeriod(target)

	var (
		act action
		bad bool
	)
	suspended := c.suspended
	if !suspended {
		act, bad = c.decide(target, escalate, sample.Online)
	}

	c.cycles++
	snap := core.ControllerSnapshot{
		OnlineCount:      sample.Online,
		PossibleCount:    c.hotplug.Possible(),
		Target:           target,
		Escalate:         escalate,
		PersistCount:     c.persistCount,
		BusyPersistCount: c.busyPersistCount,
		SamplingPeriod:   c.samplingPeriod,
		Mode:             mode,
		AvgRunning:       sample.AvgRunning,
		QueueDepth:       sample.QueueDepth,
		Cycles:           c.cycles,
		LastCycle:        now,
	}
	period := c.samplingPeriod
	c.mu.Unlock()

	c.log.V(1).Info("cycle",
		"avgRunning", sample.AvgRunning,
		"queueDepth", sample.QueueDepth,
		"online", sample.Online,
		"classified", classified,
		"escalate", escalate,
		"target", target,
		"persist", snap.PersistCount,
		"busyPersist", snap.BusyPersistCount,
		"suspended", suspended)

	if target != classified {
		metrics.Escalations.Inc()
	}
	if bad {
		metrics.BadTargets.Inc()
		c.log.Error(errors.New("target out of range"), "bad target core count",
			"target", target, "classified", classified)
	}

	switch act.kind {
	case actUp:
		c.act.bringUp(act.n)
	case actDown:
		c.act.takeDownAbove(act.n)
	}
	if !suspended {
		c.restorePending()
	}

	c.publish(snap)
	c.work.Schedule(period)
}

// updateBusyPeriod shortens the sampling period while the target is above
// two cores and holds it for BusyPersistence cycles after load drops.
// Must be called with c.mu held.
func (c *Controller) updateBusyPeriod(target int) {
	if target > 2 {
		if c.busyPersistCount == 0 {
			c.samplingPeriod = c.opts.BusySamplingPeriod
			c.busyPersistCount = BusyPersistence
		}
		return
	}
	if c.busyPersistCount > 0 {
		c.busyPersistCount--
	}
	if c.busyPersistCount == 0 {
		c.samplingPeriod = c.opts.SamplingPeriod
	}
}

// decide updates the persist counter for target and returns the hotplug
// action to issue. bad is set for targets outside 1..4.
// Must be called with c.mu held.
func (c *Controller) decide(target int, escalate bool, online int) (act action, bad bool) {
	switch target {
	case 1:
		if c.persistCount > 0 {
			c.persistCount--
		}
		if c.persistCount == 0 {
			return action{kind: actDown, n: 0}, false
		}
	case 2:
		c.persistCount = DualCorePersistence
		if !escalate {
			c.persistCount = DualCorePersistence / CPUDownFactor
		}
		switch {
		case online < 2:
			return action{kind: actUp, n: 2}, false
		case online > 2:
			return action{kind: actDown, n: 1}, false
		}
	case 3, 4:
		if online < target {
			return action{kind: actUp, n: target}, false
		}
	default:
		return action{}, true
	}
	return action{}, false
}

func (c *Controller) period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samplingPeriod
}

func (c *Controller) publish(snap core.ControllerSnapshot) {
	c.state.UpdateController(snap)

	metrics.CyclesTotal.Inc()
	metrics.OnlineCores.Set(float64(snap.OnlineCount))
	metrics.TargetCores.Set(float64(snap.Target))
	metrics.SamplingPeriodSeconds.Set(snap.SamplingPeriod.Seconds())
	metrics.PersistCount.WithLabelValues("persist").Set(float64(snap.PersistCount))
	metrics.PersistCount.WithLabelValues("busy").Set(float64(snap.BusyPersistCount))
}
