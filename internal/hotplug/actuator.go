package hotplug

import (
	"github.com/go-logr/logr"

	"github.com/sanverite/hotplugd/internal/metrics"
)

// actuator issues ordered hotplug requests and skips cores already in the
// requested state.
type actuator struct {
	hp  Hotplug
	log logr.Logger
}

// bringUp onlines cores from the lowest missing index until want cores are
// online or the topology is exhausted. It returns the number of cores brought
// online.
func (a actuator) bringUp(want int) int {
	online := onlineCount(a.hp)
	brought := 0
	for cpu := 1; cpu < a.hp.Possible() && online < want; cpu++ {
		if a.hp.IsOnline(cpu) {
			continue
		}
		err := a.hp.BringOnline(cpu)
		metrics.HotplugActions.WithLabelValues("online", metrics.Result(err)).Inc()
		if err != nil {
			a.log.Error(err, "failed to bring core online", "cpu", cpu)
			continue
		}
		a.log.V(1).Info("core online", "cpu", cpu)
		online++
		brought++
	}
	return brought
}

// takeDownAbove offlines every online core with an index above keep, highest
// index first. Core 0 is never taken offline.
func (a actuator) takeDownAbove(keep int) int {
	if keep < 0 {
		keep = 0
	}
	taken := 0
	for cpu := a.hp.Possible() - 1; cpu > keep; cpu-- {
		if !a.hp.IsOnline(cpu) {
			continue
		}
		err := a.hp.TakeOffline(cpu)
		metrics.HotplugActions.WithLabelValues("offline", metrics.Result(err)).Inc()
		if err != nil {
			a.log.Error(err, "failed to take core offline", "cpu", cpu)
			continue
		}
		a.log.V(1).Info("core offline", "cpu", cpu)
		taken++
	}
	return taken
}
