package gpuparallel

import (
	"io"
	"log/slog"
)

// quietLogger returns a logger that discards everything.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// quietOpts silences logging and progress output for tests and appends any
// test-specific options.
func quietOpts(extra ...Option) []Option {
	opts := []Option{
		WithLogger(quietLogger()),
		WithoutProgress(),
	}
	return append(opts, extra...)
}
