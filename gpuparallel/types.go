package gpuparallel

import (
	"context"
	"iter"
)

// Task is a single unit of work. It receives the identity of the worker
// executing it, together with the context of the dispatch call that
// submitted it, and returns a result value or an error.
//
// Type parameters:
//   - R: The result type produced by the task
type Task[R any] func(ctx context.Context, id WorkerIdentity) (R, error)

// InitFunc runs exactly once per worker during pool construction, with the
// worker's claimed identity. A returned error is fatal to construction.
type InitFunc func(ctx context.Context, id WorkerIdentity) error

// ResultSlot is the outcome of a single task: either a result value
// (Valid is true) or an empty marker left in place of a suppressed task
// failure (Valid is false). One slot is produced per submitted task, always.
type ResultSlot[R any] struct {
	Value R
	Valid bool
}

// TasksOf adapts a fixed set of tasks into a task sequence.
func TasksOf[R any](tasks ...Task[R]) iter.Seq[Task[R]] {
	return TaskSlice(tasks)
}

// TaskSlice adapts a slice of tasks into a task sequence.
func TaskSlice[R any](tasks []Task[R]) iter.Seq[Task[R]] {
	return func(yield func(Task[R]) bool) {
		for _, t := range tasks {
			if !yield(t) {
				return
			}
		}
	}
}
