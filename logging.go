package flock

import "github.com/rs/zerolog"

// logWorkerStart/logWorkerStop/logStopRequested/logFatal centralize the
// handful of structured log call sites the pool emits, so the field names
// stay consistent across them.

func logWorkerStart(l zerolog.Logger, workerID int) {
	l.Debug().Int("worker_id", workerID).Msg("flock: worker started")
}

func logWorkerStop(l zerolog.Logger, workerID int) {
	l.Debug().Int("worker_id", workerID).Msg("flock: worker stopped")
}

func logStopRequested(l zerolog.Logger) {
	l.Info().Msg("flock: stop requested")
}

func logTaskPanic(l zerolog.Logger, workerID int, recovered any) {
	l.Warn().Int("worker_id", workerID).Interface("panic", recovered).Msg("flock: task panicked")
}

func logFatal(l zerolog.Logger, workerID int, err error) {
	l.Error().Int("worker_id", workerID).Err(err).Msg("flock: worker stopped participating")
}
