package gpuparallel

import "errors"

var (
	// ErrWorkerInit wraps a failure of the init function during worker
	// startup. Pool construction fails as a whole; no partial pool is left
	// running.
	ErrWorkerInit = errors.New("worker init failed")

	// ErrPoolClosed is returned when dispatching on, or shutting down, a
	// pool that has already been shut down.
	ErrPoolClosed = errors.New("pool already shut down")

	// ErrShutdownTimeout is returned when workers fail to terminate within
	// the Shutdown timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)
