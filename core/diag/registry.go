// Package diag holds process-wide diagnostic counters.
//
// The counters back leak and overflow checks: the number of live
// continuation frames must return to zero once every chain has drained,
// and call-history recorders report how many entries they evicted. Tests
// call Reset to start from a clean baseline.
package diag

import "sync/atomic"

// Registry is a set of diagnostic counters. The zero value is ready to use.
type Registry struct {
	liveFrames        atomic.Int64
	framesCreated     atomic.Uint64
	truncatedEnqueue  atomic.Uint64
	truncatedExecuted atomic.Uint64
}

// Snapshot is a point-in-time copy of a Registry.
type Snapshot struct {
	LiveFrames        int64
	FramesCreated     uint64
	TruncatedEnqueue  uint64
	TruncatedExecuted uint64
}

var defaultRegistry Registry

// Default returns the process-wide registry.
func Default() *Registry { return &defaultRegistry }

// FrameRetained records a continuation frame becoming live.
func (r *Registry) FrameRetained() {
	r.liveFrames.Add(1)
	r.framesCreated.Add(1)
}

// FrameReleased records a continuation frame being released. Releasing more
// frames than were retained is a bug in the caller and panics.
func (r *Registry) FrameReleased() {
	if r.liveFrames.Add(-1) < 0 {
		panic("diag: continuation frame released twice")
	}
}

// LiveFrames returns the number of continuation frames currently retained.
func (r *Registry) LiveFrames() int64 { return r.liveFrames.Load() }

// FramesCreated returns the number of frames retained since the last Reset.
func (r *Registry) FramesCreated() uint64 { return r.framesCreated.Load() }

// AddTruncatedEnqueue adds n evicted enqueue-history entries.
func (r *Registry) AddTruncatedEnqueue(n uint64) { r.truncatedEnqueue.Add(n) }

// AddTruncatedExecuted adds n evicted execution-history entries.
func (r *Registry) AddTruncatedExecuted(n uint64) { r.truncatedExecuted.Add(n) }

func (r *Registry) TruncatedEnqueue() uint64  { return r.truncatedEnqueue.Load() }
func (r *Registry) TruncatedExecuted() uint64 { return r.truncatedExecuted.Load() }

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		LiveFrames:        r.liveFrames.Load(),
		FramesCreated:     r.framesCreated.Load(),
		TruncatedEnqueue:  r.truncatedEnqueue.Load(),
		TruncatedExecuted: r.truncatedExecuted.Load(),
	}
}

// Reset zeroes every counter. Only call it when no chain is in flight.
func (r *Registry) Reset() {
	r.liveFrames.Store(0)
	r.framesCreated.Store(0)
	r.truncatedEnqueue.Store(0)
	r.truncatedExecuted.Store(0)
}
