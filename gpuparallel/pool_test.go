package gpuparallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_InitErrorIsFatal(t *testing.T) {
	initErr := errors.New("model load failed")

	initFn := func(ctx context.Context, id WorkerIdentity) error {
		if id.SlotID == 1 {
			return initErr
		}
		return nil
	}

	gp, err := New[int](quietOpts(
		WithDevices(2),
		WithSlotsPerDevice(2),
		WithInitFunc(initFn),
	)...)
	if err == nil {
		gp.Shutdown(time.Second)
		t.Fatal("expected construction to fail when init fails")
	}
	if !errors.Is(err, ErrWorkerInit) {
		t.Errorf("expected error to wrap ErrWorkerInit, got %v", err)
	}
	if gp != nil {
		t.Error("expected nil pool on failed construction")
	}
}

func TestPoolReuse_InitRunsOncePerWorker(t *testing.T) {
	const devices = 2
	const slotsPerDevice = 2

	var initCount atomic.Int64
	initFn := func(ctx context.Context, id WorkerIdentity) error {
		initCount.Add(1)
		return nil
	}

	gp, err := New[int](quietOpts(
		WithDevices(devices),
		WithSlotsPerDevice(slotsPerDevice),
		WithInitFunc(initFn),
	)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer gp.Shutdown(time.Second)

	task := func(ctx context.Context, id WorkerIdentity) (int, error) {
		return id.SlotID, nil
	}

	for call := range 3 {
		results, err := gp.Run(context.Background(), TasksOf(task, task, task))
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", call, err)
		}
		if len(results) != 3 {
			t.Fatalf("call %d: expected 3 results, got %d", call, len(results))
		}
	}

	if got := initCount.Load(); got != devices*slotsPerDevice {
		t.Errorf("expected init to run %d times total, got %d", devices*slotsPerDevice, got)
	}
}

func TestShutdown_SecondCallFails(t *testing.T) {
	gp, err := New[int](quietOpts(WithDevices(1))...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := gp.Shutdown(time.Second); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := gp.Shutdown(time.Second); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed on second shutdown, got %v", err)
	}
}

func TestShutdown_TimeoutOnStuckWorker(t *testing.T) {
	gp, err := New[int](quietOpts(WithDevices(1))...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	task := func(ctx context.Context, id WorkerIdentity) (int, error) {
		close(started)
		<-release
		return 0, nil
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_, _ = gp.Run(context.Background(), TasksOf(task))
	}()

	<-started
	if err := gp.Shutdown(50 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("expected ErrShutdownTimeout, got %v", err)
	}

	close(release)
	<-runDone
}

func TestShutdown_SurfacesPropagatedTaskError(t *testing.T) {
	taskErr := errors.New("cuda out of memory")

	gp, err := New[int](quietOpts(
		WithDevices(1),
		WithSlotsPerDevice(2),
		WithPropagateTaskErrors(),
	)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failing := func(ctx context.Context, id WorkerIdentity) (int, error) {
		return 0, taskErr
	}

	// The placeholder slot is guaranteed published before propagation, so
	// the count invariant holds even though the worker dies.
	results, err := gp.Run(context.Background(), TasksOf(failing))
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if len(results) != 1 || results[0].Valid {
		t.Fatalf("expected exactly one empty slot, got %+v", results)
	}

	if err := gp.Shutdown(time.Second); !errors.Is(err, taskErr) {
		t.Errorf("expected propagated task error at shutdown, got %v", err)
	}
}

func TestOptions_InvalidValuesIgnored(t *testing.T) {
	var initCount atomic.Int64

	gp, err := New[int](quietOpts(
		WithDevices(-5),
		WithSlotsPerDevice(0),
		WithTaskBuffer(-1),
		WithInitFunc(func(ctx context.Context, id WorkerIdentity) error {
			initCount.Add(1)
			return nil
		}),
	)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer gp.Shutdown(time.Second)

	// Defaults stay at one device with one slot.
	if got := initCount.Load(); got != 1 {
		t.Errorf("expected a single worker with default config, got %d inits", got)
	}
}
