// Package wake implements the mutex/condition-variable/event-count
// protocol that bridges the MPMC queue in internal/queue to a pool of
// worker goroutines without losing wakeups or spinning.
//
// A naive "increment a counter, notify_one" scheme can lose wakeups if a
// worker finished its drain loop but has not yet acquired the condition's
// mutex: the notify races ahead and nobody is waiting. Coordinator closes
// that window by turning "work may be available" into a monotonic event
// count (wakeSeq) that a worker compares against the value it last
// observed, rather than a boolean.
package wake

import "sync"

// Coordinator holds the mutex, condition variable, wake-sequence counter,
// and stop flag shared by a worker pool's submitters and workers.
type Coordinator struct {
	mu      sync.Mutex
	cond    *sync.Cond
	wakeSeq uint64
	stopped bool
}

// New constructs a ready-to-use Coordinator.
func New() *Coordinator {
	c := &Coordinator{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Notify is the wake half of the submission handshake: it increments
// wakeSeq and wakes exactly one waiter. The caller is expected to have
// already made the work visible (e.g. by enqueueing a task) before
// calling Notify, so that any worker woken by it observes the new work
// either in its own drain or via the advanced wakeSeq.
func (c *Coordinator) Notify() {
	c.mu.Lock()
	c.wakeSeq++
	c.mu.Unlock()
	c.cond.Signal()
}

// RequestStop sets the stop flag, bumps wakeSeq, and wakes every sleeping
// worker so each observes stop exactly once. Idempotent: calling it more
// than once after the first has no additional effect.
func (c *Coordinator) RequestStop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.wakeSeq++
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Stopped reports whether RequestStop has been called.
func (c *Coordinator) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// CurrentSeq returns the current wake-sequence value, for a worker to
// record as its baseline before it starts draining.
func (c *Coordinator) CurrentSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeSeq
}

// Wait blocks until either the stop flag is set or wakeSeq has advanced
// past last. It returns the wakeSeq value observed at wakeup (the new
// baseline for the next drain) and whether stop was observed. Any
// increment to wakeSeq that happens after a worker's drain returned empty
// but before it calls Wait is guaranteed to be visible here, because Wait
// re-checks the predicate under the same mutex before sleeping — there is
// no window in which a Notify between "drain returned empty" and "Wait
// acquires the mutex" can be missed.
func (c *Coordinator) Wait(last uint64) (newLast uint64, stopped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.wakeSeq <= last && !c.stopped {
		c.cond.Wait()
	}
	return c.wakeSeq, c.stopped
}
