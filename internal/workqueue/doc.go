// Package workqueue provides the scheduling primitive used by the controller.
//
// # Overview
//
// A Queue owns one worker goroutine and runs submitted jobs strictly one at a
// time, in submission order. A DelayedWork binds a function to a Queue and can
// be armed with Schedule(delay); when the delay expires the function is
// submitted to the queue. Arming an already pending DelayedWork replaces the
// pending deadline, so bursts of Schedule calls coalesce into a single run.
//
// # Draining
//
// Flush blocks until every job submitted before the call has finished. It is
// how a caller makes sure no in-flight job is still acting on stale state. A
// DelayedWork whose timer has not fired yet is not affected by Flush; use
// Cancel to drop it.
//
// Flush and Close must not be called from a job running on the same queue.
package workqueue
