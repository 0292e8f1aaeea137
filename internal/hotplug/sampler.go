package hotplug

// LoadSample is one observation of system load.
type LoadSample struct {
	AvgRunning uint64 // FShift fixed point
	QueueDepth uint   // run queue depth x10
	Online     int    // cores online
}

// Sampler combines the load metric source with the core topology. It is
// called from the main loop only.
type Sampler struct {
	load LoadMetrics
	topo Topology
}

// NewSampler returns a Sampler reading from load and topo.
func NewSampler(load LoadMetrics, topo Topology) *Sampler {
	return &Sampler{load: load, topo: topo}
}

// Sample returns the current load observation.
func (s *Sampler) Sample() LoadSample {
	return LoadSample{
		AvgRunning: s.load.AverageRunning(),
		QueueDepth: s.load.QueueDepth(),
		Online:     onlineCount(s.topo),
	}
}
