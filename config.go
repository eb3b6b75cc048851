package flock

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs" // container-aware GOMAXPROCS; see Config.NumWorkers default
)

// Config holds the configuration for a Pool. Build one with functional
// Options rather than by hand; see Option and the With* constructors.
type Config struct {
	// NumWorkers is the number of worker goroutines. DefaultConfig sets
	// this to runtime.GOMAXPROCS(0) (which automaxprocs' init has already
	// set from the container's CPU quota, when running under one). A pool
	// explicitly constructed with NumWorkers == 0 (e.g. via
	// WithNumWorkers(0)) is interpreted as one worker, not zero.
	NumWorkers int

	// PanicHandler, if non-nil, is called with the recovered value when a
	// submitted task panics during execution. Every task panic is also
	// logged via Logger at warn level with the recovered value, whether or
	// not a handler is set; no stack trace is logged.
	PanicHandler func(recovered any)

	// OnWorkerStart and OnWorkerStop, if non-nil, are called with a
	// worker's 0-based index when that worker starts and stops,
	// respectively. Useful for monitoring or tracing.
	OnWorkerStart func(workerID int)
	OnWorkerStop  func(workerID int)

	// Logger receives structured lifecycle events (worker start/stop,
	// stop requests, task panics, fatal slot-exhaustion conditions).
	// Defaults to a disabled logger so the library is silent unless a
	// caller opts in.
	Logger zerolog.Logger

	// ShutdownTimeout bounds how long Close waits for workers to join
	// before returning anyway. Zero means wait indefinitely, the default.
	ShutdownTimeout time.Duration
}

// Option configures a Config.
type Option func(*Config)

// DefaultConfig returns a Config with sensible defaults: NumWorkers set to
// runtime.GOMAXPROCS(0), no hooks, a disabled logger.
func DefaultConfig() Config {
	return Config{
		NumWorkers: runtime.GOMAXPROCS(0),
		Logger:     zerolog.Nop(),
	}
}

// WithNumWorkers sets the fixed number of worker goroutines.
func WithNumWorkers(n int) Option {
	return func(c *Config) { c.NumWorkers = n }
}

// WithPanicHandler installs a custom handler for recovered task panics.
func WithPanicHandler(h func(recovered any)) Option {
	return func(c *Config) { c.PanicHandler = h }
}

// WithWorkerHooks installs lifecycle callbacks invoked when a worker
// starts and stops.
func WithWorkerHooks(onStart, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithLogger installs a zerolog.Logger for pool lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithShutdownTimeout bounds how long Close waits for workers to join.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// resolve validates the configuration and maps NumWorkers == 0 to one
// worker. The GOMAXPROCS-based default is applied by DefaultConfig, not here.
func (c *Config) resolve() error {
	if c.NumWorkers < 0 {
		return wrapInvalidConfig("NumWorkers must be >= 0")
	}
	if c.NumWorkers == 0 {
		// A pool explicitly requested with zero workers behaves as if
		// requested with one.
		c.NumWorkers = 1
	}
	if c.ShutdownTimeout < 0 {
		return wrapInvalidConfig("ShutdownTimeout must be >= 0")
	}
	return nil
}
