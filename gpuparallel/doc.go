// Package gpuparallel provides a bounded worker pool whose workers are each
// bound, once and for life, to a fixed (slot, device) identity.
//
// The primary type is GPUParallel[R], a pool of long-lived workers which
// execute tasks of shape func(ctx, WorkerIdentity) (R, error) and stream
// their results back to the caller. The pool hands out consistent identity
// tuples without ever inspecting real hardware, which makes it a natural fit
// for multi-GPU data preprocessing: the init function loads per-device state
// (a model, a session) once, and every subsequent task dispatched to that
// worker reuses it.
//
// # Basic Usage
//
//	gp, err := gpuparallel.New[Embedding](
//	    gpuparallel.WithDevices(2),
//	    gpuparallel.WithSlotsPerDevice(2),
//	    gpuparallel.WithInitFunc(func(ctx context.Context, id gpuparallel.WorkerIdentity) error {
//	        return loadModel(id.DeviceID)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gp.Shutdown(10 * time.Second)
//
//	results, err := gp.Run(ctx, gpuparallel.TaskSlice(tasks))
//
// # Identities
//
// For D devices and S slots per device the pool spawns exactly D×S workers.
// Identities are enumerated device-major, SlotID = DeviceID*S + localIndex,
// and each worker claims exactly one at startup. An identity is never
// reassigned or rebalanced, not even across separate dispatch calls.
//
// # Dispatch Modes
//
// The pool supports two invocation forms on the same instance:
//
//   - Run: dispatches a task sequence and returns an eagerly materialized
//     slice of result slots, one per task, in completion order
//   - Stream: returns a lazy, single-pass sequence of result slots; nothing
//     is submitted until the sequence is first consumed
//
// # Debug Mode
//
// Constructing with WithDevices(0) selects the synchronous debug path: no
// workers are spawned, every task runs inline in the calling goroutine with
// the fixed identity {0, 0}, results keep submission order, and the first
// failure propagates immediately with no isolation. Debug mode trades
// concurrency for determinism and failure visibility.
//
// # Error Handling
//
// A task failure inside a worker is contained at the worker boundary: it is
// logged in full (panics included, with their stack) and converted into an
// empty ResultSlot, preserving the one-slot-per-task count invariant. The
// worker stays reusable. WithPropagateTaskErrors switches suppression off;
// see its documentation for why that propagation is a weak guarantee.
//
// An init function failure during construction is fatal: New tears the pool
// down and returns an error wrapping ErrWorkerInit.
//
// # Progress
//
// Each dispatch call drives a progress tracker (one update per submitted
// task and per received result). By default a terminal progress bar is
// rendered; WithoutProgress disables it and WithProgressFunc replaces it
// with a custom observer.
package gpuparallel
