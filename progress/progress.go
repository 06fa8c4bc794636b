// Package progress keeps aggregated dispatch counters (tasks submitted,
// completed, failed) for a single dispatch call. The tracker is updated
// atomically via the Delta helper by the coordinator as it submits tasks and
// receives results; an optional OnChange callback receives a snapshot after
// every update so that rendering (e.g. a terminal progress bar) can happen
// outside the dispatch loop.
package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the dispatcher.
type Delta struct {
	Total     int
	Completed int
	Failed    int
}

// Snapshot is a read-only copy of the tracker counters.
type Snapshot struct {
	RunID     string
	StartedAt time.Time

	Total     int
	Completed int
	Failed    int
}

// Done reports whether every submitted task has produced an outcome.
func (s Snapshot) Done() bool {
	return s.Total > 0 && s.Completed+s.Failed == s.Total
}

// Progress keeps aggregated task counters for one dispatch call. It is safe
// for concurrent use. A nil *Progress is valid and ignores all updates.
type Progress struct {
	// Identification, informative only.
	RunID     string
	StartedAt time.Time

	mu        sync.Mutex
	total     int
	completed int
	failed    int
	onChange  func(Snapshot)
}

// Update applies the supplied delta to the tracker. If an onChange callback
// has been registered it is invoked with a snapshot outside the critical
// section, so the callback may perform slow operations (rendering, I/O)
// without blocking the dispatcher.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.mu.Lock()
	p.total += d.Total
	p.completed += d.Completed
	p.failed += d.Failed
	snapshot := p.snapshotLocked()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters suitable for read-only inspection.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback. Only one callback can be active; subsequent calls
// overwrite the previous value.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

func (p *Progress) snapshotLocked() Snapshot {
	return Snapshot{
		RunID:     p.RunID,
		StartedAt: p.StartedAt,
		Total:     p.total,
		Completed: p.completed,
		Failed:    p.failed,
	}
}
