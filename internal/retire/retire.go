// Package retire implements the safe-reclamation half of the hazard-pointer
// scheme in internal/hazard: per-participant batches of nodes that have
// been logically unlinked but not yet freed, plus a global overflow bag for
// batches orphaned by a participant that stopped participating.
package retire

import (
	"sync"
	"unsafe"

	"github.com/flocklib/flock/internal/hazard"
)

// ScanThreshold is the batch size at which Retire triggers a Scan.
const ScanThreshold = 64

// Reclaimable is implemented by queue nodes (or any retired value) that
// know how to free themselves and report the address hazard pointers
// would protect.
type Reclaimable interface {
	// Addr returns the address a hazard pointer would publish to protect
	// this value. It must be stable for the value's lifetime.
	Addr() unsafe.Pointer
	// Free releases any resources held by the value. Called only once,
	// only after Scan has proven no hazard slot names Addr().
	Free()
}

// Batch is a single participant's set of retired-but-not-yet-freed values.
// A Batch is not safe for concurrent use; each participant owns exactly
// one, typically alongside the hazard.Record it already holds.
type Batch struct {
	dom     *hazard.Domain
	global  *Global
	pending []Reclaimable
}

// NewBatch creates a Batch that scans dom and, on participant exit, hands
// off any remainder to global.
func NewBatch(dom *hazard.Domain, global *Global) *Batch {
	return &Batch{dom: dom, global: global}
}

// Retire appends v to the batch. Once the batch reaches ScanThreshold
// entries, Scan runs automatically.
func (b *Batch) Retire(v Reclaimable) {
	b.pending = append(b.pending, v)
	if len(b.pending) >= ScanThreshold {
		b.Scan()
	}
}

// Scan snapshots the hazard domain and frees every batched value whose
// address is not in the snapshot, retaining the rest. Scanning never holds
// the hazard domain's internal free-list mutex while calling Free, since
// Free may recursively retire, allocate, or participate in other queues.
func (b *Batch) Scan() {
	if len(b.pending) == 0 {
		return
	}
	snapshot := b.dom.Scan()

	kept := b.pending[:0]
	for _, v := range b.pending {
		if hazard.Protected(snapshot, v.Addr()) {
			kept = append(kept, v)
		} else {
			v.Free()
		}
	}
	b.pending = kept
}

// Drain hands any remaining pending values to the global overflow. It is
// called when a participant terminates with a non-empty batch; the
// overflow is only safe to free once no participant remains (see
// Global.DrainAll), because at that point it is provably free of hazards.
func (b *Batch) Drain() {
	if len(b.pending) == 0 {
		return
	}
	b.global.absorb(b.pending)
	b.pending = nil
}

// Global is an overflow collection populated by Batch.Drain when a
// participant exits with a non-empty batch. It is not a singleton: each
// queue owns its own Global.
type Global struct {
	mu       sync.Mutex
	overflow []Reclaimable
}

func (g *Global) absorb(vs []Reclaimable) {
	g.mu.Lock()
	g.overflow = append(g.overflow, vs...)
	g.mu.Unlock()
}

// DrainAll unconditionally frees every value in the global overflow. It
// must only be called when no participating goroutine remains (for
// example, after a worker pool has joined every worker), since that is the
// only point at which the overflow is provably free of hazards — no
// scan is performed, no hazard snapshot is taken.
func (g *Global) DrainAll() {
	g.mu.Lock()
	pending := g.overflow
	g.overflow = nil
	g.mu.Unlock()

	for _, v := range pending {
		v.Free()
	}
}

// Len reports the number of values currently held in the global overflow.
// Intended for tests and diagnostics, not for termination logic.
func (g *Global) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.overflow)
}
