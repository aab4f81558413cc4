package actor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/turingvideo/couchbase-lite-core/core/async"
	"github.com/turingvideo/couchbase-lite-core/core/execctx"
	"github.com/turingvideo/couchbase-lite-core/core/history"
)

type OnPanic func(recovered any, stack []byte, entry string)

type Options struct {
	// ID defaults to "actor-" plus a random suffix.
	ID string
	// Name is used in logs and call histories. Defaults to ID.
	Name     string
	Executor Executor
	Context  context.Context
	Logger   *slog.Logger
	Metrics  ActorMetrics
	// History records enqueue and execution events. If nil, a recorder with
	// HistoryLimit entries per sequence is created.
	History      *history.Recorder
	HistoryLimit int
	// MaxBatch is the number of entries one drain runs before it yields the
	// executor back to other actors. Defaults to 64.
	MaxBatch int
	OnPanic  OnPanic
}

// Actor serialises invocations through a FIFO mailbox. At most one entry of
// an actor runs at any time; entries of different actors run in parallel
// on the executor.
type Actor struct {
	id   string
	name string
	ctx  context.Context
	log  *slog.Logger

	exec     Executor
	metrics  ActorMetrics
	history  *history.Recorder
	onPanic  OnPanic
	maxBatch int

	handlers *TypedHandlerRegistry
	hc       HandlerCtx

	mu        sync.Mutex
	queue     []*entry
	scheduled bool
	busySince time.Time
	paused    bool
	steps     int

	running  atomic.Bool
	lastExec atomic.Int64
}

type entry struct {
	name  string
	fn    func()
	at    time.Time
	from  string
	after time.Duration
}

func New(opt Options, handlers ...HandlerRegistration) *Actor {
	if opt.ID == "" {
		opt.ID = "actor-" + gonanoid.Must(8)
	}
	if opt.Name == "" {
		opt.Name = opt.ID
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopActorMetrics()
	}
	if opt.History == nil {
		opt.History = history.New(opt.HistoryLimit)
	}
	if opt.MaxBatch <= 0 {
		opt.MaxBatch = 64
	}
	if opt.Executor == nil {
		opt.Executor = DefaultExecutor()
	}

	log := opt.Logger.With(slog.String("actor", opt.ID))
	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte, entry string) {
			log.Error("actor panicked",
				slog.Any("recovered", recovered),
				slog.String("entry", entry),
				slog.String("stack", string(stack)),
			)
		}
	}

	a := &Actor{
		id:       opt.ID,
		name:     opt.Name,
		ctx:      opt.Context,
		log:      log,
		exec:     opt.Executor,
		metrics:  opt.Metrics,
		history:  opt.History,
		onPanic:  opt.OnPanic,
		maxBatch: opt.MaxBatch,
	}
	if ae, ok := opt.Executor.(AffinityExecutor); ok {
		a.exec = ae.Bind(opt.ID)
	}
	a.hc = &handlerCtx{Context: opt.Context, log: log, actor: a}

	if len(handlers) > 0 {
		a.handlers = TypedHandlers(handlers...)
		a.Enqueue("init", func() {
			if err := a.handlers.InitHandler(a.hc); err != nil {
				a.log.Error("actor init failed", slog.Any("error", err))
			}
		})
	}
	return a
}

func (a *Actor) ID() string                 { return a.id }
func (a *Actor) Name() string               { return a.name }
func (a *Actor) Log() *slog.Logger          { return a.log }
func (a *Actor) History() *history.Recorder { return a.history }

// Enqueue appends fn to the mailbox. fn runs after every entry enqueued
// before it has finished, on an executor goroutine.
func (a *Actor) Enqueue(name string, fn func()) {
	e := a.newEntry(name, fn, 0)
	a.push(e, a.describeEnqueue(e))
}

// EnqueueAfter appends fn to the mailbox once delay has elapsed.
func (a *Actor) EnqueueAfter(delay time.Duration, name string, fn func()) {
	if delay <= 0 {
		a.Enqueue(name, fn)
		return
	}
	e := a.newEntry(name, fn, delay)
	a.history.RecordAt(history.Enqueue, a.describeEnqueue(e), e.at)
	time.AfterFunc(delay, func() { a.push(e, "") })
}

// Pending returns the number of entries waiting in the mailbox.
func (a *Actor) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// LastExecution returns when the actor last started an entry, or the zero
// time if it never did.
func (a *Actor) LastExecution() time.Time {
	ns := a.lastExec.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Dump writes the actor's call history.
func (a *Actor) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Call history of %s (%s), %d pending:\n", a.name, a.id, a.Pending()); err != nil {
		return err
	}
	return a.history.Dump(w)
}

// stalledFor returns how long the head of a non-empty mailbox has been
// waiting without any entry starting.
func (a *Actor) stalledFor(now time.Time) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 || a.paused {
		return 0
	}
	return now.Sub(a.busySince)
}

// Pause stops the actor from starting further entries until Resume or Step.
// An entry that is already running finishes. Enqueueing keeps working.
func (a *Actor) Pause() {
	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()
}

// Resume undoes Pause and drains whatever queued up meanwhile.
func (a *Actor) Resume() {
	a.mu.Lock()
	a.paused = false
	a.steps = 0
	a.kickLocked()
}

// Step lets a paused actor run exactly one more entry. It does nothing on
// an actor that is not paused.
func (a *Actor) Step() {
	a.mu.Lock()
	if !a.paused {
		a.mu.Unlock()
		return
	}
	a.steps++
	a.kickLocked()
}

// Paused reports whether Pause is in effect.
func (a *Actor) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// gatedLocked reports whether a pause keeps the head of the mailbox from
// running.
func (a *Actor) gatedLocked() bool { return a.paused && a.steps == 0 }

// kickLocked schedules a drain if one is needed and releases a.mu.
func (a *Actor) kickLocked() {
	start := len(a.queue) > 0 && !a.scheduled && !a.gatedLocked()
	if start {
		a.scheduled = true
		a.busySince = time.Now()
	}
	a.mu.Unlock()
	if start {
		a.exec.Schedule(a.drain)
	}
}

func (a *Actor) newEntry(name string, fn func(), after time.Duration) *entry {
	return &entry{
		name:  name,
		fn:    fn,
		at:    time.Now(),
		from:  execctx.Current().String(),
		after: after,
	}
}

func (a *Actor) describeEnqueue(e *entry) string {
	s := a.name + "::" + e.name + " [from " + e.from
	if e.after > 0 {
		s += " after " + strconv.FormatFloat(e.after.Seconds(), 'g', -1, 64) + " secs"
	}
	return s + "]"
}

// push appends e and, if desc is set, records it in the enqueue history
// while holding the mailbox lock so that the history order is the mailbox
// order.
func (a *Actor) push(e *entry, desc string) {
	a.mu.Lock()
	if desc != "" {
		a.history.RecordAt(history.Enqueue, desc, e.at)
	}
	if len(a.queue) == 0 {
		a.busySince = time.Now()
	}
	a.queue = append(a.queue, e)
	depth := len(a.queue)
	start := !a.scheduled && !a.gatedLocked()
	if start {
		a.scheduled = true
	}
	a.mu.Unlock()

	a.metrics.MailboxDepth(a.id, depth)
	if start {
		a.exec.Schedule(a.drain)
	}
}

func (a *Actor) drain() {
	if !a.running.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("actor %s: concurrent drain", a.id))
	}

	for i := 0; i < a.maxBatch; i++ {
		a.mu.Lock()
		if len(a.queue) == 0 || a.gatedLocked() {
			a.scheduled = false
			a.running.Store(false)
			a.mu.Unlock()
			return
		}
		if a.paused {
			a.steps--
		}
		e := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		depth := len(a.queue)
		a.busySince = time.Now()
		a.mu.Unlock()

		a.metrics.MailboxDepth(a.id, depth)
		a.execute(e)
	}

	a.mu.Lock()
	more := len(a.queue) > 0 && !a.gatedLocked()
	if !more {
		a.scheduled = false
	}
	a.running.Store(false)
	a.mu.Unlock()

	if more {
		a.metrics.DrainYield(a.id)
		a.exec.Schedule(a.drain)
	}
}

func (a *Actor) execute(e *entry) {
	now := time.Now()
	a.lastExec.Store(now.UnixNano())
	a.history.RecordAt(history.Execution, a.name+"::"+e.name+" [on "+execctx.Current().String()+"]", now)

	defer a.metrics.MessageDuration(e.name).ObserveDuration()
	defer func() {
		if r := recover(); r != nil {
			if cv, ok := r.(*async.ContractViolation); ok {
				panic(cv)
			}
			a.metrics.MessagePanic(e.name)
			a.metrics.MessageProcessed(e.name, false)
			a.onPanic(r, debug.Stack(), e.name)
		}
	}()
	e.fn()
	a.metrics.MessageProcessed(e.name, true)
}
