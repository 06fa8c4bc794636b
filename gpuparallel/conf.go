package gpuparallel

import (
	"log/slog"

	"github.com/levysh/GPUParallel/progress"
)

// Option is a functional option for configuring a GPUParallel instance.
type Option func(*config)

type config struct {
	devices            int
	slotsPerDevice     int
	taskBuffer         int
	initFn             InitFunc
	logger             *slog.Logger
	showProgress       bool
	suppressTaskErrors bool
	onProgress         func(progress.Snapshot)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		devices:            1,
		slotsPerDevice:     1,
		showProgress:       true,
		suppressTaskErrors: true,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// workerCount is the fixed pool size: one worker per slot on every device.
func (c *config) workerCount() int {
	return c.devices * c.slotsPerDevice
}

func (c *config) bufferSize() int {
	if c.taskBuffer > 0 {
		return c.taskBuffer
	}
	return c.workerCount()
}

// WithDevices sets the number of logical devices to use. The library does
// not check whether the devices really exist; it only hands out consistent
// identities to both the init function and tasks.
// devices = 0 turns on synchronous debug mode. Defaults to 1.
func WithDevices(devices int) Option {
	return func(cfg *config) {
		if devices >= 0 {
			cfg.devices = devices
		}
	}
}

// WithSlotsPerDevice sets how many workers share each device. Defaults to 1.
func WithSlotsPerDevice(slots int) Option {
	return func(cfg *config) {
		if slots > 0 {
			cfg.slotsPerDevice = slots
		}
	}
}

// WithInitFunc sets a function called exactly once per worker during pool
// construction, with the worker's claimed identity. Helpful to load
// per-worker state (e.g. a model onto its device): workers are never
// recycled, so whatever the init function warms survives across dispatch
// calls. A returned error is fatal to pool construction.
func WithInitFunc(fn InitFunc) Option {
	return func(cfg *config) {
		cfg.initFn = fn
	}
}

// WithTaskBuffer bounds the internal task queue. A larger buffer lets the
// submitter run further ahead of the workers at the cost of memory.
// If not specified, defaults to the worker count.
func WithTaskBuffer(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithoutProgress disables the default terminal progress bar.
func WithoutProgress() Option {
	return func(cfg *config) {
		cfg.showProgress = false
	}
}

// WithProgressFunc replaces the default progress bar with a custom observer.
// The observer is invoked with a counter snapshot after every submitted task
// and every received result.
func WithProgressFunc(fn func(progress.Snapshot)) Option {
	return func(cfg *config) {
		cfg.onProgress = fn
	}
}

// WithPropagateTaskErrors makes workers propagate task failures instead of
// suppressing them into empty result slots. The empty slot is still
// published before the failure propagates, so result counts are preserved,
// but delivery of the propagated error is a weak guarantee: it surfaces, if
// at all, from Shutdown, and the failing worker is lost for future tasks.
// Prefer encoding failures in the result type when you need deterministic
// failure handling in async mode.
func WithPropagateTaskErrors() Option {
	return func(cfg *config) {
		cfg.suppressTaskErrors = false
	}
}

// WithLogger sets the structured logger used by the pool. Worker log lines
// are tagged with the worker's identity, dispatch log lines with a per-call
// run id. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
