package hotplug

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanverite/hotplugd/internal/core"
)

// fakePlatform records every hotplug and frequency request in order.
type fakePlatform struct {
	mu       sync.Mutex
	online   []bool
	policies map[int]FreqPolicy
	calls    []string
	fail     map[string]error
}

func newFakePlatform(possible, online int) *fakePlatform {
	p := &fakePlatform{
		online:   make([]bool, possible),
		policies: make(map[int]FreqPolicy),
		fail:     make(map[string]error),
	}
	for cpu := 0; cpu < online; cpu++ {
		p.online[cpu] = true
	}
	return p
}

func (p *fakePlatform) Possible() int { return len(p.online) }

func (p *fakePlatform) IsOnline(cpu int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[cpu]
}

func (p *fakePlatform) BringOnline(cpu int) error {
	return p.setOnline(cpu, true)
}

func (p *fakePlatform) TakeOffline(cpu int) error {
	return p.setOnline(cpu, false)
}

func (p *fakePlatform) setOnline(cpu int, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := fmt.Sprintf("offline %d", cpu)
	if on {
		call = fmt.Sprintf("online %d", cpu)
	}
	p.calls = append(p.calls, call)
	if err := p.fail[call]; err != nil {
		return err
	}
	p.online[cpu] = on
	return nil
}

func (p *fakePlatform) Policy(cpu int) (FreqPolicy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policies[cpu], nil
}

func (p *fakePlatform) SetPolicy(cpu int, minKHz, maxKHz uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("policy %d %d-%d", cpu, minKHz, maxKHz))
	pol := p.policies[cpu]
	pol.MinKHz, pol.MaxKHz = minKHz, maxKHz
	p.policies[cpu] = pol
	return nil
}

func (p *fakePlatform) SetCurrent(cpu int, khz uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf("current %d %d", cpu, khz))
	pol := p.policies[cpu]
	pol.CurKHz = khz
	p.policies[cpu] = pol
	return nil
}

func (p *fakePlatform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlatform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

func (p *fakePlatform) Online() int {
	return onlineCount(p)
}

type fakeLoad struct {
	mu    sync.Mutex
	avg   uint64
	depth uint
}

func (l *fakeLoad) Set(avg uint64, depth uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.avg, l.depth = avg, depth
}

func (l *fakeLoad) AverageRunning() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.avg
}

func (l *fakeLoad) QueueDepth() uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth
}

type mockFrequency struct {
	mock.Mock
}

func (m *mockFrequency) Policy(cpu int) (FreqPolicy, error) {
	args := m.Called(cpu)
	return args.Get(0).(FreqPolicy), args.Error(1)
}

func (m *mockFrequency) SetPolicy(cpu int, minKHz, maxKHz uint) error {
	return m.Called(cpu, minKHz, maxKHz).Error(0)
}

func (m *mockFrequency) SetCurrent(cpu int, khz uint) error {
	return m.Called(cpu, khz).Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func defaultTunables() core.Tunables {
	return core.Tunables{
		Active:     true,
		TouchBoost: true,
		Hysteresis: DefaultHysteresis,
		FineShift:  DefaultFineShift,
	}
}

type testRig struct {
	c     *Controller
	plat  *fakePlatform
	load  *fakeLoad
	clock *fakeClock
	state *core.State
}

// newTestRig builds a controller whose timers never fire during a test;
// cycles are driven by calling cycle directly.
func newTestRig(t *testing.T, possible, online int, tun core.Tunables) *testRig {
	t.Helper()
	plat := newFakePlatform(possible, online)
	load := &fakeLoad{}
	clock := newFakeClock()
	state := core.NewState(tun)
	c := NewController(state, plat, plat, load, Options{
		SamplingPeriod:     time.Hour,
		BusySamplingPeriod: 30 * time.Minute,
		StartDelay:         time.Hour,
		ResumeDelay:        time.Hour,
		WakeupBoostWindow:  time.Hour,
		Clock:              clock.Now,
	})
	t.Cleanup(func() {
		c.work.Cancel()
		c.unboost.Cancel()
		c.queue.Close()
	})
	return &testRig{c: c, plat: plat, load: load, clock: clock, state: state}
}

// step advances the clock by one second and runs a cycle.
func (r *testRig) step(avg uint64, depth uint) {
	r.clock.Advance(time.Second)
	r.load.Set(avg, depth)
	r.c.cycle()
}

func (r *testRig) persist() uint {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.persistCount
}
