// Package queue implements the lock-free, linked, multi-producer
// multi-consumer FIFO queue this module is built around: the classical
// Michael-Scott algorithm (two-CAS enqueue, one-CAS dequeue) with a
// permanent dummy head, augmented with hazard-pointer protection on head,
// tail, and the node immediately following head/tail, and safe reclamation
// via internal/retire.
package queue

import (
	"sync/atomic"
	"unsafe"

	"github.com/flocklib/flock/internal/hazard"
	"github.com/flocklib/flock/internal/retire"
)

// cacheLinePad prevents false sharing between hot fields that are written
// by different goroutines, carried over from the teacher's bounded-queue
// padding idiom.
type cacheLinePad struct {
	_ [64]byte
}

// node is the internal linked-list element. The permanent dummy node's
// hasValue is always false; every other node's hasValue is true until the
// instant TryDequeue moves its value out.
type node[T any] struct {
	next     atomic.Pointer[node[T]]
	value    T
	hasValue bool
}

// Addr implements retire.Reclaimable: the address a hazard pointer would
// publish to protect this node.
func (n *node[T]) Addr() unsafe.Pointer { return unsafe.Pointer(n) }

// Free implements retire.Reclaimable. The node becomes garbage once no
// goroutine can reach it through the Go heap's GC roots; retirement only
// needs to stop hazard-protected goroutines from dereferencing it after
// this point, which dropping the last reference to it achieves.
func (n *node[T]) Free() {}

// Queue is a lock-free MPMC FIFO queue of values of type T.
type Queue[T any] struct {
	_ cacheLinePad

	head atomic.Pointer[node[T]]

	_ cacheLinePad

	tail atomic.Pointer[node[T]]

	_ cacheLinePad

	dom    *hazard.Domain
	global *retire.Global
}

// New constructs an empty Queue. dom is the hazard domain participants
// publish to; global is the overflow Batch.Drain hands retired nodes to
// when a participant exits with a non-empty batch. Passing nil for either
// uses the process-wide hazard.Global() domain and a fresh *retire.Global
// respectively — most callers should just use NewDefault.
func New[T any](dom *hazard.Domain, global *retire.Global) *Queue[T] {
	if dom == nil {
		dom = hazard.Global()
	}
	if global == nil {
		global = &retire.Global{}
	}
	q := &Queue[T]{dom: dom, global: global}
	dummy := &node[T]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// NewDefault constructs a Queue against the process-wide hazard domain and
// a private retirement overflow.
func NewDefault[T any]() *Queue[T] {
	return New[T](nil, nil)
}

// Domain returns the hazard domain this queue publishes to, so callers can
// share a hazard.Record (and therefore a retire.Batch) across a goroutine's
// queue operations without re-acquiring one per call.
func (q *Queue[T]) Domain() *hazard.Domain { return q.dom }

// Global returns the retirement overflow backing this queue, for use by a
// pool's shutdown sequence (DrainAll after every worker has joined).
func (q *Queue[T]) Global() *retire.Global { return q.global }

// Participant bundles the hazard record and retirement batch a goroutine
// needs to call Enqueue/TryDequeue on this queue. Acquire one per
// goroutine that will call into the queue and Release it when the
// goroutine stops participating.
type Participant[T any] struct {
	rec   *hazard.Record
	batch *retire.Batch
}

// Join acquires a hazard.Record from the queue's domain and a retirement
// batch that drains into the queue's global overflow on exit.
func (q *Queue[T]) Join() (*Participant[T], error) {
	rec, err := q.dom.Acquire()
	if err != nil {
		return nil, err
	}
	return &Participant[T]{rec: rec, batch: retire.NewBatch(q.dom, q.global)}, nil
}

// Leave hands any still-pending retired nodes to the queue's global
// overflow and releases the hazard record. Call when a goroutine stops
// participating (e.g. a worker pool shutting down).
func (p *Participant[T]) Leave() {
	p.batch.Drain()
	p.rec.Release()
}

func protect[T any](rec *hazard.Record, slot int, load func() *node[T]) *node[T] {
	for {
		p := load()
		rec.Publish(slot, unsafe.Pointer(p))
		if load() == p {
			return p
		}
		// the reload disagreed with what we protected; the publication is
		// stale, retry from the top with the slot still holding the old
		// (now possibly-unsafe) value until we succeed in protecting the
		// current one.
	}
}

// Enqueue appends v to the queue. It never fails except for the allocation
// of the new node, which in Go surfaces as a fatal out-of-memory runtime
// error that no recover can intercept, rather than a recoverable error —
// consistent with this implementation's "allocation failure is fatal"
// stance.
func (q *Queue[T]) Enqueue(p *Participant[T], v T) {
	n := &node[T]{value: v, hasValue: true}

	for {
		t := protect[T](p.rec, 0, q.tail.Load)

		next := t.next.Load()
		p.rec.Publish(1, unsafe.Pointer(next))
		if t != q.tail.Load() || next != t.next.Load() {
			p.rec.Clear(1)
			continue
		}

		if next == nil {
			if t.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(t, n) // help; failure is harmless
				p.rec.Clear(0)
				p.rec.Clear(1)
				return
			}
			p.rec.Clear(1)
			continue
		}

		// tail is lagging one step behind the true end; help advance it
		// before retrying, or tail could be permanently stuck while every
		// thread loops forever re-reading the same stale snapshot.
		q.tail.CompareAndSwap(t, next)
		p.rec.Clear(1)
	}
}

// TryDequeue removes and returns the queue's oldest element. The second
// return value is false if the queue was observed empty; this check is
// conservative in the sense described by Empty, but an empty observation
// from TryDequeue at a single linearization point is authoritative for
// that call.
func (q *Queue[T]) TryDequeue(p *Participant[T]) (T, bool) {
	for {
		h := protect[T](p.rec, 0, q.head.Load)

		t := q.tail.Load()
		next := h.next.Load()
		p.rec.Publish(1, unsafe.Pointer(next))
		if h != q.head.Load() || next != h.next.Load() {
			p.rec.Clear(1)
			continue
		}

		if h == t {
			if next == nil {
				p.rec.Clear(0)
				p.rec.Clear(1)
				var zero T
				return zero, false
			}
			// tail lagging; help advance, then retry.
			q.tail.CompareAndSwap(t, next)
			p.rec.Clear(1)
			continue
		}

		if next == nil {
			// inconsistent snapshot: h != t implies next should be
			// non-nil under some memory orderings this can transiently
			// appear otherwise; retry.
			p.rec.Clear(1)
			continue
		}

		if q.head.CompareAndSwap(h, next) {
			// The payload is moved out only after the head-CAS succeeds: the
			// winner has exclusive logical ownership of next once it is the
			// new dummy, so reading its value here cannot race with another
			// dequeuer's losing attempt on the same (h, next) snapshot.
			v := next.value
			var zero T
			next.value = zero
			next.hasValue = false
			p.rec.Clear(0)
			p.rec.Clear(1)
			p.batch.Retire(h)
			return v, true
		}
	}
}

// Empty conservatively reports whether the queue appears empty. It may
// report non-empty while concurrently transitioning to empty and must
// never be used alone as a termination signal — only in conjunction with
// an external quiescence signal (as the worker pool's wake coordination
// provides).
func (q *Queue[T]) Empty() bool {
	h := q.head.Load()
	return h.next.Load() == nil
}
