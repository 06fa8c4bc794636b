package gpuparallel

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/levysh/GPUParallel/progress"
)

// Run dispatches every task in the sequence and blocks until every result
// has arrived, returning them as an eagerly materialized slice. Exactly one
// ResultSlot is returned per submitted task, whether or not the task failed.
//
// In async mode results arrive in completion order, not submission order —
// an explicit non-guarantee. In debug mode (devices = 0) tasks run inline in
// submission order, results are ordered, and the first failure is returned
// immediately.
//
// Example:
//
//	results, err := gp.Run(ctx, gpuparallel.TasksOf(
//	    func(ctx context.Context, id gpuparallel.WorkerIdentity) (int, error) {
//	        return id.DeviceID, nil
//	    },
//	))
func (gp *GPUParallel[R]) Run(ctx context.Context, tasks iter.Seq[Task[R]]) ([]ResultSlot[R], error) {
	results := []ResultSlot[R]{}
	for slot, err := range gp.Stream(ctx, tasks) {
		if err != nil {
			return nil, err
		}
		results = append(results, slot)
	}
	return results, nil
}

// Stream dispatches the task sequence lazily: no task is submitted until
// the returned sequence is first consumed, and result slots are yielded as
// they arrive. The sequence is single-pass and non-restartable — once
// exhausted (or abandoned) a second range over it yields no items.
//
// Abandoning the stream early does not wedge the pool: the outstanding
// results are drained in the background and discarded, and the instance
// stays usable for further dispatch calls.
//
// The error yielded alongside each slot is always nil in async mode; in
// debug mode a task failure terminates the stream with that error.
func (gp *GPUParallel[R]) Stream(ctx context.Context, tasks iter.Seq[Task[R]]) iter.Seq2[ResultSlot[R], error] {
	if gp.debug {
		return gp.streamSync(ctx, tasks)
	}
	return gp.streamAsync(ctx, tasks)
}

// streamSync is the debug path: tasks are materialized and invoked inline,
// strictly in submission order, each with the fixed debug identity. There is
// no isolation — a failure unwinds the invocation immediately.
func (gp *GPUParallel[R]) streamSync(ctx context.Context, tasks iter.Seq[Task[R]]) iter.Seq2[ResultSlot[R], error] {
	var consumed atomic.Bool

	return func(yield func(ResultSlot[R], error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		if gp.closed.Load() {
			yield(ResultSlot[R]{}, ErrPoolClosed)
			return
		}

		gp.logger.Warn("debug mode is turned on, all tasks will run in the calling goroutine")

		all := slices.Collect(tasks)
		tracker := gp.newTracker(uuid.NewString()[:8])
		tracker.Update(progress.Delta{Total: len(all)})

		for _, task := range all {
			value, err := task(ctx, gp.debugID)
			if err != nil {
				tracker.Update(progress.Delta{Failed: 1})
				yield(ResultSlot[R]{}, err)
				return
			}
			tracker.Update(progress.Delta{Completed: 1})
			if !yield(ResultSlot[R]{Value: value, Valid: true}, nil) {
				return
			}
		}
	}
}

// streamAsync is the pooled path. A submitter goroutine feeds the shared
// task channel fire-and-forget while the collector reads the shared result
// channel until exactly as many slots have arrived as tasks were submitted.
// Collection is the only synchronization point between the coordinator and
// the workers.
func (gp *GPUParallel[R]) streamAsync(ctx context.Context, tasks iter.Seq[Task[R]]) iter.Seq2[ResultSlot[R], error] {
	var consumed atomic.Bool

	return func(yield func(ResultSlot[R], error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		if gp.closed.Load() {
			yield(ResultSlot[R]{}, ErrPoolClosed)
			return
		}

		out := make(chan ResultSlot[R])
		stop := make(chan struct{})
		var stopOnce sync.Once
		abandon := func() { stopOnce.Do(func() { close(stop) }) }
		defer abandon()

		go gp.collect(ctx, tasks, out, stop)

		for slot := range out {
			if !yield(slot, nil) {
				return
			}
		}
	}
}

// collect owns one dispatch call end to end, holding the dispatch lock for
// its whole duration so that concurrent calls on the same instance cannot
// interleave on the shared result channel. It keeps draining even after the
// consumer has walked away from the stream, so the pool stays usable.
func (gp *GPUParallel[R]) collect(ctx context.Context, tasks iter.Seq[Task[R]], out chan<- ResultSlot[R], stop <-chan struct{}) {
	gp.dispatchMu.Lock()
	defer gp.dispatchMu.Unlock()
	defer close(out)

	runID := uuid.NewString()[:8]
	tracker := gp.newTracker(runID)
	logger := gp.logger.With("run", runID)

	// Fire-and-forget submission: each task goes to the pool without
	// waiting for completion, bounded only by the task channel buffer.
	submitted := make(chan int, 1)
	go func() {
		n := 0
		for task := range tasks {
			gp.taskCh <- boundTask[R]{ctx: ctx, task: task}
			n++
			tracker.Update(progress.Delta{Total: 1})
		}
		logger.Debug("all tasks submitted", "count", n)
		submitted <- n
	}()

	received := 0
	total := -1
	for total < 0 || received < total {
		select {
		case n := <-submitted:
			total = n
		case slot := <-gp.resultCh:
			received++
			if slot.Valid {
				tracker.Update(progress.Delta{Completed: 1})
			} else {
				tracker.Update(progress.Delta{Failed: 1})
			}
			select {
			case out <- slot:
			case <-stop:
				// Consumer abandoned the stream; discard and keep draining.
			}
		}
	}

	logger.Debug("all results received", "count", received)
}

// newTracker builds the per-dispatch progress tracker. It returns nil (a
// valid no-op tracker) when progress reporting is disabled.
func (gp *GPUParallel[R]) newTracker(runID string) *progress.Progress {
	tracker := &progress.Progress{
		RunID:     runID,
		StartedAt: time.Now(),
	}

	switch {
	case gp.conf.onProgress != nil:
		tracker.OnChange(gp.conf.onProgress)
	case gp.conf.showProgress:
		tracker.OnChange(progress.NewBar("dispatching"))
	default:
		return nil
	}
	return tracker
}
