package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Controller instruments. Label values are kept small and fixed.

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "cycles_total",
		Help:      "Total sampling cycles run",
	})

	OnlineCores = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "online_cores",
		Help:      "Cores online when the last cycle sampled",
	})

	TargetCores = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "target_cores",
		Help:      "Merged target core count of the last cycle",
	})

	SamplingPeriodSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "sampling_period_seconds",
		Help:      "Delay until the next sampling cycle",
	})

	PersistCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "persist_count",
		Help:      "Debounce counters after the last cycle",
	}, []string{"counter"})

	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "escalations_total",
		Help:      "Cycles where the trend detector added a core",
	})

	BadTargets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "controller",
		Name:      "bad_targets_total",
		Help:      "Cycles that produced a target outside the supported range",
	})

	HotplugActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "platform",
		Name:      "hotplug_actions_total",
		Help:      "Core online/offline requests by action and result",
	}, []string{"action", "result"})

	FrequencyActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "platform",
		Name:      "frequency_actions_total",
		Help:      "Frequency policy requests by action and result",
	}, []string{"action", "result"})

	SuspendTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "suspend",
		Name:      "transitions_total",
		Help:      "Display suspend and resume transitions",
	}, []string{"kind"})

	InputEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "boost",
		Name:      "input_events_total",
		Help:      "Input events received from matched devices",
	})

	Boosts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hotplugd",
		Subsystem: "boost",
		Name:      "boosts_total",
		Help:      "Touch boosts that brought a core online",
	})
)

// Result returns the result label for err.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
