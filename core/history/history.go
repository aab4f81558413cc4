// Package history records bounded per-actor call histories for postmortem
// analysis of hangs.
//
// A Recorder keeps two independent sequences: enqueue events (who asked an
// actor to do what, from where) and execution events (what the actor then
// ran, and where). When a sequence exceeds its limit the oldest entry is
// evicted and the sequence's truncation counter goes up. Dump renders both
// sequences for logs.
package history

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

// Kind selects one of the two sequences of a Recorder.
type Kind int

const (
	Enqueue Kind = iota
	Execution
)

func (k Kind) String() string {
	switch k {
	case Enqueue:
		return "enqueue"
	case Execution:
		return "execution"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultLimit is used when a Recorder is created with a non-positive limit.
const DefaultLimit = 100

// Entry is one recorded event.
type Entry struct {
	Elapsed     time.Duration // since the recorder was created
	Description string
}

// sequence is a ring of at most limit entries. buf grows up to limit and
// is then overwritten starting at head, the oldest entry.
type sequence struct {
	buf       []Entry
	head      int
	truncated uint64
}

// push stores e and reports whether the oldest entry was evicted.
func (s *sequence) push(e Entry, limit int) bool {
	if len(s.buf) < limit {
		s.buf = append(s.buf, e)
		return false
	}
	s.buf[s.head] = e
	s.head = (s.head + 1) % limit
	s.truncated++
	return true
}

// entries returns a copy in oldest first order.
func (s *sequence) entries() []Entry {
	out := make([]Entry, 0, len(s.buf))
	out = append(out, s.buf[s.head:]...)
	return append(out, s.buf[:s.head]...)
}

func (s *sequence) last() (Entry, bool) {
	if len(s.buf) == 0 {
		return Entry{}, false
	}
	i := s.head - 1
	if i < 0 {
		i = len(s.buf) - 1
	}
	return s.buf[i], true
}

// Recorder is safe for concurrent use. It never panics on the record path.
type Recorder struct {
	start time.Time
	limit int
	reg   *diag.Registry

	mu   sync.Mutex
	seqs [2]sequence
}

type Option func(*Recorder)

// WithRegistry reports evictions to reg instead of diag.Default().
func WithRegistry(reg *diag.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.reg = reg
		}
	}
}

// WithStart overrides the reference time entries are measured from.
func WithStart(t time.Time) Option {
	return func(r *Recorder) { r.start = t }
}

func New(limit int, opts ...Option) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &Recorder{
		start: time.Now(),
		limit: limit,
		reg:   diag.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limit returns the maximum number of entries kept per sequence.
func (r *Recorder) Limit() int { return r.limit }

// Record appends an event stamped with the current time.
func (r *Recorder) Record(kind Kind, description string) {
	r.RecordAt(kind, description, time.Now())
}

// RecordAt appends an event that happened at ts.
func (r *Recorder) RecordAt(kind Kind, description string, ts time.Time) {
	if kind != Enqueue && kind != Execution {
		return
	}
	e := Entry{Elapsed: ts.Sub(r.start), Description: description}

	r.mu.Lock()
	evicted := r.seqs[kind].push(e, r.limit)
	r.mu.Unlock()

	if evicted {
		switch kind {
		case Enqueue:
			r.reg.AddTruncatedEnqueue(1)
		case Execution:
			r.reg.AddTruncatedExecuted(1)
		}
	}
}

// Entries returns a copy of the retained entries of one sequence, oldest
// first.
func (r *Recorder) Entries(kind Kind) []Entry {
	if kind != Enqueue && kind != Execution {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seqs[kind].entries()
}

// Truncated returns how many entries of one sequence have been evicted.
func (r *Recorder) Truncated(kind Kind) uint64 {
	if kind != Enqueue && kind != Execution {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seqs[kind].truncated
}

// Last returns the newest entry of one sequence.
func (r *Recorder) Last(kind Kind) (Entry, bool) {
	if kind != Enqueue && kind != Execution {
		return Entry{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seqs[kind].last()
}

// Dump writes both sequences, oldest first, in a human readable form.
func (r *Recorder) Dump(w io.Writer) error {
	r.mu.Lock()
	var (
		entries   [2][]Entry
		truncated [2]uint64
	)
	for i := range r.seqs {
		entries[i] = r.seqs[i].entries()
		truncated[i] = r.seqs[i].truncated
	}
	r.mu.Unlock()

	if err := dumpSequence(w, "List of enqueue calls:", entries[Enqueue], truncated[Enqueue]); err != nil {
		return err
	}
	return dumpSequence(w, "Resulting execution calls:", entries[Execution], truncated[Execution])
}

func dumpSequence(w io.Writer, title string, entries []Entry, truncated uint64) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if truncated > 0 {
		if _, err := fmt.Fprintf(w, "\t...%d truncated frames...\n", truncated); err != nil {
			return err
		}
	}
	for _, e := range entries {
		ms := float64(e.Elapsed.Microseconds()) / 1000.0
		if _, err := fmt.Fprintf(w, "\t[%.3f ms] %s\n", ms, e.Description); err != nil {
			return err
		}
	}
	return nil
}
