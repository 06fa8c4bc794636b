package gpuparallel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// workerLoop is the body of one worker goroutine. The worker claims its
// identity with a single receive, runs the init function, re-tags its logger
// with the claimed identity, reports readiness and then blocks awaiting
// tasks until the task channel closes or the pool context is cancelled.
// The identity is immutable read-only state for the worker's whole lifetime.
func (gp *GPUParallel[R]) workerLoop(ctx context.Context, identityCh <-chan WorkerIdentity, readyCh chan<- error) error {
	id := <-identityCh

	if gp.conf.initFn != nil {
		if err := gp.conf.initFn(ctx, id); err != nil {
			err = fmt.Errorf("%w: worker %d on device %d: %v", ErrWorkerInit, id.SlotID, id.DeviceID, err)
			readyCh <- err
			return err
		}
	}

	logger := gp.logger.With("worker", id.SlotID, "device", id.DeviceID)
	logger.Debug("worker initialized")
	readyCh <- nil

	for {
		select {
		case <-ctx.Done():
			return nil
		case bt, ok := <-gp.taskCh:
			if !ok {
				return nil
			}
			if err := gp.runOne(bt, id, logger); err != nil {
				return err
			}
		}
	}
}

// runOne executes a single task with the worker's bound identity. Failures
// are contained here: the failure is logged in full and the empty slot is
// published before any propagation is attempted, so the coordinator's
// result count never comes up short. With suppression on (the default) a
// failed task leaves the worker fully reusable.
func (gp *GPUParallel[R]) runOne(bt boundTask[R], id WorkerIdentity, logger *slog.Logger) error {
	value, err := runSafely(bt.ctx, id, bt.task)
	if err != nil {
		logger.Error("task failed", "error", err)
		gp.resultCh <- ResultSlot[R]{}
		if !gp.conf.suppressTaskErrors {
			// Propagation out of a worker is a weak guarantee: the worker
			// exits here and the error surfaces, if at all, at Shutdown.
			return err
		}
		return nil
	}

	gp.resultCh <- ResultSlot[R]{Value: value, Valid: true}
	return nil
}

// runSafely invokes the task and converts panics into errors with the
// captured stack, so a misbehaving task cannot take its worker down.
func runSafely[R any](ctx context.Context, id WorkerIdentity, task Task[R]) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	return task(ctx, id)
}
