package hotplug

import (
	"errors"
	"sort"

	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/metrics"
)

// Suspended reports whether the controller is in the display-off state.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// SetSuspended suspends when on is true and the controller is awake, and
// resumes when on is false and the controller is suspended. Other calls are
// no-ops.
func (c *Controller) SetSuspended(on bool) {
	if on {
		c.Suspend()
		return
	}
	c.Resume()
}

// Suspend enters the display-off state: it marks the controller suspended,
// drains the main loop, caps the max frequency of every online core when a
// screen-off cap is configured, and takes every core except core 0 offline.
func (c *Controller) Suspend() {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		c.log.V(1).Info("already suspended")
		return
	}
	c.suspended = true
	leftover := c.saved
	c.saved = nil
	c.mu.Unlock()

	// Cycles starting from here see suspended; wait out one already running.
	c.queue.Flush()

	c.unboost.Cancel()
	c.endWakeupBoost()

	tun := c.state.Tunables()
	// A leftover entry predates any cap still in place on that core.
	saved := mergeSaved(leftover, c.capFrequencies(tun.ScreenOffMaxKHz))

	c.mu.Lock()
	c.saved = saved
	c.mu.Unlock()

	taken := c.act.takeDownAbove(0)

	now := c.opts.Clock()
	c.state.UpdateSuspend(core.SuspendSnapshot{Suspended: true, SavedMaxKHz: maxOf(saved), Since: now})
	c.setAgentState(core.StateSuspended)
	metrics.SuspendTransitions.WithLabelValues("suspend").Inc()
	c.log.Info("suspended", "offlined", taken, "screenOffMaxKHz", tun.ScreenOffMaxKHz, "capped", len(saved))
}

// Resume leaves the display-off state: it brings cores back online (only
// core 0 in eco mode), restores the saved frequency policies of the cores
// that are online, raises every online core to its max frequency for the
// wakeup boost window and re-arms the main loop promptly. Policies of cores
// still offline are restored by the first cycle that finds them online.
func (c *Controller) Resume() {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if !c.suspended {
		c.mu.Unlock()
		c.log.V(1).Info("not suspended")
		return
	}
	c.persistCount = BusyPersistence
	c.suspended = false
	saved := c.saved
	c.saved = nil
	c.mu.Unlock()

	want := c.hotplug.Possible()
	if c.state.Tunables().EcoMode {
		want = 1
	}
	brought := c.act.bringUp(want)

	pending := c.restoreFrequencies(saved)
	if len(pending) > 0 {
		c.mu.Lock()
		c.saved = mergeSaved(c.saved, pending)
		c.mu.Unlock()
	}
	c.wakeupBoost()

	c.work.Schedule(c.opts.ResumeDelay)

	c.state.UpdateSuspend(core.SuspendSnapshot{Suspended: false, Since: c.opts.Clock()})
	if c.state.AgentState() == core.StateSuspended {
		c.setAgentState(core.StateActive)
	}
	metrics.SuspendTransitions.WithLabelValues("resume").Inc()
	c.log.Info("resumed", "onlined", brought, "restored", len(saved)-len(pending), "pending", len(pending))
}

// capFrequencies saves the policy of every online core and caps its max at
// capKHz. A zero cap disables capping.
func (c *Controller) capFrequencies(capKHz uint) map[int]FreqPolicy {
	if capKHz == 0 || c.freq == nil {
		return nil
	}

	saved := make(map[int]FreqPolicy)
	for cpu := 0; cpu < c.hotplug.Possible(); cpu++ {
		if !c.hotplug.IsOnline(cpu) {
			continue
		}
		p, err := c.freq.Policy(cpu)
		if err != nil {
			c.log.Error(err, "failed to read frequency policy", "cpu", cpu)
			continue
		}
		saved[cpu] = p

		minKHz := p.MinKHz
		if minKHz > capKHz {
			minKHz = capKHz
		}
		err = c.freq.SetPolicy(cpu, minKHz, capKHz)
		metrics.FrequencyActions.WithLabelValues("cap", metrics.Result(err)).Inc()
		if err != nil {
			c.log.Error(err, "failed to cap max frequency", "cpu", cpu, "maxKHz", capKHz)
		}
	}
	return saved
}

// restoreFrequencies writes back the saved policy of every online core, in
// core order, and returns the entries of cores that are offline.
func (c *Controller) restoreFrequencies(saved map[int]FreqPolicy) map[int]FreqPolicy {
	if len(saved) == 0 || c.freq == nil {
		return nil
	}

	var pending map[int]FreqPolicy
	for _, cpu := range sortedCPUs(saved) {
		p := saved[cpu]
		if !c.hotplug.IsOnline(cpu) {
			if pending == nil {
				pending = make(map[int]FreqPolicy)
			}
			pending[cpu] = p
			continue
		}
		err := c.freq.SetPolicy(cpu, p.MinKHz, p.MaxKHz)
		metrics.FrequencyActions.WithLabelValues("restore", metrics.Result(err)).Inc()
		if err != nil {
			c.log.Error(err, "failed to restore frequency policy", "cpu", cpu, "maxKHz", p.MaxKHz)
		}
	}
	return pending
}

// restorePending restores saved policies left over from a resume for cores
// that have come online since. Runs on the main loop.
func (c *Controller) restorePending() {
	c.mu.Lock()
	if len(c.saved) == 0 {
		c.mu.Unlock()
		return
	}
	cpus := sortedCPUs(c.saved)
	c.mu.Unlock()

	var online []int
	for _, cpu := range cpus {
		if c.hotplug.IsOnline(cpu) {
			online = append(online, cpu)
		}
	}
	if len(online) == 0 {
		return
	}

	ready := make(map[int]FreqPolicy, len(online))
	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return
	}
	for _, cpu := range online {
		if p, ok := c.saved[cpu]; ok {
			ready[cpu] = p
			delete(c.saved, cpu)
		}
	}
	c.mu.Unlock()

	c.restoreFrequencies(ready)
}

// wakeupBoost sets the current frequency of every online core to its max
// and arms the unboost work, which puts the previous frequency back once the
// wakeup boost window has passed.
func (c *Controller) wakeupBoost() {
	if c.freq == nil {
		return
	}
	boosted := make(map[int]uint)
	for cpu := 0; cpu < c.hotplug.Possible(); cpu++ {
		if !c.hotplug.IsOnline(cpu) {
			continue
		}
		p, err := c.freq.Policy(cpu)
		if err != nil {
			continue
		}
		err = c.freq.SetCurrent(cpu, p.MaxKHz)
		metrics.FrequencyActions.WithLabelValues("boost", metrics.Result(err)).Inc()
		if err != nil {
			c.log.V(1).Info("wakeup boost skipped", "cpu", cpu, "error", err.Error())
			continue
		}
		if p.CurKHz != 0 && p.CurKHz != p.MaxKHz {
			boosted[cpu] = p.CurKHz
		}
	}
	if len(boosted) == 0 {
		return
	}

	c.mu.Lock()
	if c.boosted == nil {
		c.boosted = boosted
	} else {
		// Keep the frequency from before the first of overlapping boosts.
		for cpu, khz := range boosted {
			if _, ok := c.boosted[cpu]; !ok {
				c.boosted[cpu] = khz
			}
		}
	}
	c.mu.Unlock()
	c.unboost.Schedule(c.opts.WakeupBoostWindow)
}

// endWakeupBoost writes back the frequencies recorded by wakeupBoost.
func (c *Controller) endWakeupBoost() {
	c.mu.Lock()
	boosted := c.boosted
	c.boosted = nil
	c.mu.Unlock()

	for _, cpu := range sortedCPUs(boosted) {
		if !c.hotplug.IsOnline(cpu) {
			continue
		}
		khz := boosted[cpu]
		err := c.freq.SetCurrent(cpu, khz)
		metrics.FrequencyActions.WithLabelValues("unboost", metrics.Result(err)).Inc()
		if err != nil {
			c.log.Error(err, "failed to end wakeup boost", "cpu", cpu, "khz", khz)
		}
	}
}

func (c *Controller) setAgentState(next core.AgentState) {
	err := c.state.SetAgentState(next)
	switch {
	case errors.Is(err, core.ErrInvalidTransition):
		c.log.V(1).Info("lifecycle transition rejected", "to", next, "from", c.state.AgentState())
	case err != nil:
		c.log.Error(err, "lifecycle transition failed", "to", next)
	}
}

func maxOf(saved map[int]FreqPolicy) map[int]uint {
	if len(saved) == 0 {
		return nil
	}
	out := make(map[int]uint, len(saved))
	for cpu, p := range saved {
		out[cpu] = p.MaxKHz
	}
	return out
}

// mergeSaved adds the entries of extra that dst lacks. Either may be nil.
func mergeSaved(dst, extra map[int]FreqPolicy) map[int]FreqPolicy {
	if len(extra) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[int]FreqPolicy, len(extra))
	}
	for cpu, p := range extra {
		if _, ok := dst[cpu]; !ok {
			dst[cpu] = p
		}
	}
	return dst
}

func sortedCPUs[V any](m map[int]V) []int {
	cpus := make([]int, 0, len(m))
	for cpu := range m {
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)
	return cpus
}
