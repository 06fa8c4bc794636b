package gpuparallel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// GPUParallel owns a fixed set of long-lived workers, each bound at startup
// to one WorkerIdentity. The pool is created exactly once by New and torn
// down exactly once by Shutdown; it persists across any number of Run or
// Stream calls, so state warmed by the init function stays live between
// calls.
//
// With devices = 0 the instance runs in debug mode: no workers are spawned
// and every task executes synchronously in the calling goroutine with the
// fixed identity {SlotID: 0, DeviceID: 0}.
//
// Type parameters:
//   - R: The result type produced by tasks
type GPUParallel[R any] struct {
	conf   *config
	logger *slog.Logger

	// Debug mode state: tasks run inline with this fixed identity.
	debug   bool
	debugID WorkerIdentity

	taskCh   chan boundTask[R]
	resultCh chan ResultSlot[R]

	workers *errgroup.Group
	cancel  context.CancelFunc

	dispatchMu sync.Mutex // serializes dispatch calls on this instance
	closed     atomic.Bool
}

// boundTask pairs a submitted task with the context of the dispatch call
// that submitted it, so workers execute each task under its caller's
// context rather than the pool's lifetime context.
type boundTask[R any] struct {
	ctx  context.Context
	task Task[R]
}

// New constructs a GPUParallel instance. In async mode (devices > 0) it
// spawns exactly devices×slotsPerDevice workers; each worker claims one
// identity, runs the init function if one is configured, and then blocks
// awaiting tasks. New returns only after every worker reports readiness.
//
// If the init function fails for any worker the whole construction fails:
// the remaining workers are torn down and the error (wrapping ErrWorkerInit)
// is returned. No partial pool is ever left running.
//
// Example:
//
//	gp, err := gpuparallel.New[string](
//	    gpuparallel.WithDevices(2),
//	    gpuparallel.WithSlotsPerDevice(2),
//	    gpuparallel.WithInitFunc(loadModel),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gp.Shutdown(10 * time.Second)
func New[R any](opts ...Option) (*GPUParallel[R], error) {
	conf := newConfig(opts...)

	gp := &GPUParallel[R]{
		conf:   conf,
		logger: conf.logger,
	}

	if conf.devices == 0 {
		gp.debug = true
		gp.logger.Warn("devices=0 turns on debug mode, all tasks will run synchronously in the calling goroutine")
		if conf.initFn != nil {
			if err := conf.initFn(context.Background(), gp.debugID); err != nil {
				return nil, fmt.Errorf("gpuparallel: %w: worker %d on device %d: %v",
					ErrWorkerInit, gp.debugID.SlotID, gp.debugID.DeviceID, err)
			}
		}
		return gp, nil
	}

	n := conf.workerCount()
	identityCh := newIdentityChannel(conf.devices, conf.slotsPerDevice)

	ctx, cancel := context.WithCancel(context.Background())
	gp.cancel = cancel
	gp.taskCh = make(chan boundTask[R], conf.bufferSize())
	gp.resultCh = make(chan ResultSlot[R], n)

	readyCh := make(chan error, n)
	gp.workers = &errgroup.Group{}
	for range n {
		gp.workers.Go(func() error {
			return gp.workerLoop(ctx, identityCh, readyCh)
		})
	}

	for range n {
		if err := <-readyCh; err != nil {
			cancel()
			_ = gp.workers.Wait()
			return nil, fmt.Errorf("gpuparallel: %w", err)
		}
	}

	gp.logger.Debug("pool started",
		"devices", conf.devices, "slots_per_device", conf.slotsPerDevice, "workers", n)
	return gp, nil
}

// Shutdown tears the pool down: the task channel is closed, and Shutdown
// waits up to timeout (0 = forever) for every worker to terminate. It must
// be called exactly once, after the last dispatch call has been drained; a
// second call returns ErrPoolClosed.
//
// If a worker propagated a task failure (see WithPropagateTaskErrors), that
// error surfaces here. Workers that fail to terminate in time are reported
// as ErrShutdownTimeout; the pool is unusable either way.
func (gp *GPUParallel[R]) Shutdown(timeout time.Duration) error {
	if !gp.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	if gp.debug {
		return nil
	}

	close(gp.taskCh)
	defer gp.cancel()

	done := make(chan error, 1)
	go func() {
		done <- gp.workers.Wait()
	}()

	if timeout <= 0 {
		return <-done
	}
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
