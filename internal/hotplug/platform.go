package hotplug

// Topology reports which cores exist and which are online.
type Topology interface {
	// Possible returns the number of cores, addressed 0..Possible()-1.
	Possible() int
	// IsOnline reports whether cpu is online.
	IsOnline(cpu int) bool
}

// Hotplug brings cores online and takes them offline. Requests toward a core
// already in the requested state must succeed without side effects.
type Hotplug interface {
	Topology
	BringOnline(cpu int) error
	TakeOffline(cpu int) error
}

// FreqPolicy is a core's frequency policy in kHz.
type FreqPolicy struct {
	MinKHz uint
	MaxKHz uint
	CurKHz uint
}

// Frequency reads and writes core frequency policies.
type Frequency interface {
	Policy(cpu int) (FreqPolicy, error)
	SetPolicy(cpu int, minKHz, maxKHz uint) error
	SetCurrent(cpu int, khz uint) error
}

// LoadMetrics is the scheduler load metric source.
type LoadMetrics interface {
	// AverageRunning returns the average number of running tasks since the
	// previous call, in FShift fixed point.
	AverageRunning() uint64
	// QueueDepth returns the rolling run queue depth scaled by ten.
	QueueDepth() uint
}

func onlineCount(t Topology) int {
	n := 0
	for cpu := 0; cpu < t.Possible(); cpu++ {
		if t.IsOnline(cpu) {
			n++
		}
	}
	return n
}
