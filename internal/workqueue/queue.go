package workqueue

import (
	"sync"
	"time"
)

// Queue runs submitted jobs on a single dedicated goroutine.
type Queue struct {
	jobs chan func()
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts a queue with the given submit buffer depth.
func New(depth int) *Queue {
	if depth <= 0 {
		depth = 1
	}
	q := &Queue{
		jobs: make(chan func(), depth),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		job()
	}
}

// Submit enqueues fn. It returns false once the queue is closed.
func (q *Queue) Submit(fn func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	q.jobs <- fn
	return true
}

// Flush waits until every job submitted before the call has run.
func (q *Queue) Flush() {
	barrier := make(chan struct{})
	if !q.Submit(func() { close(barrier) }) {
		<-q.done
		return
	}
	<-barrier
}

// Close stops accepting jobs, runs what is already queued and waits for the
// worker to exit. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}

// DelayedWork is a function that runs on a Queue after a delay.
type DelayedWork struct {
	q  *Queue
	fn func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
}

// NewDelayedWork binds fn to q. Nothing runs until Schedule is called.
func NewDelayedWork(q *Queue, fn func()) *DelayedWork {
	return &DelayedWork{q: q, fn: fn}
}

// Schedule arms the work to run after delay, replacing any pending deadline.
func (w *DelayedWork) Schedule(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = true
	w.timer = time.AfterFunc(delay, func() { w.fire(gen) })
}

// Pending reports whether the work is armed and has not been handed to the
// queue yet.
func (w *DelayedWork) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Cancel disarms the work. A run already handed to the queue by an earlier
// arm is skipped. Cancel reports whether the work was pending.
func (w *DelayedWork) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	wasPending := w.pending
	w.gen++
	w.pending = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return wasPending
}

func (w *DelayedWork) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	w.q.Submit(func() { w.runIfCurrent(gen) })
}

func (w *DelayedWork) runIfCurrent(gen uint64) {
	w.mu.Lock()
	stale := gen != w.gen
	w.mu.Unlock()
	if stale {
		return
	}
	w.fn()
}
