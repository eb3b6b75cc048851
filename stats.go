package flock

// Stats is a point-in-time snapshot of a Pool's counters. Unlike a
// per-worker bounded queue's depth/capacity pair, there is exactly one
// shared queue here, so Stats reports pool-wide totals rather than
// per-worker occupancy.
type Stats struct {
	// Submitted is the total number of tasks ever accepted by Submit or
	// SubmitErr.
	Submitted uint64
	// Completed is the total number of tasks whose run() has returned,
	// panic or not.
	Completed uint64
	// InFlight is Submitted minus Completed: tasks queued or currently
	// executing.
	InFlight uint64
	// NumWorkers is the pool's fixed worker count.
	NumWorkers int
}
