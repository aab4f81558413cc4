package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/turingvideo/couchbase-lite-core/core/async"
	"github.com/turingvideo/couchbase-lite-core/core/execctx"
	"github.com/turingvideo/couchbase-lite-core/internal/hrw"
)

// Executor runs units of work. Mailbox drains are the only work actors
// submit; an executor must not run two submitted functions in a way that
// requires them to be ordered.
type Executor interface {
	Schedule(f func())
}

// AffinityExecutor can bind a key to one logical queue. Actors bind their
// ID so that all drains of one actor run on the same queue.
type AffinityExecutor interface {
	Executor
	Bind(key string) Executor
}

// ---- Pool ----

type PoolOptions struct {
	Name string
	// MaxConcurrent caps the number of functions running at once. If 0 or
	// negative, runtime.GOMAXPROCS(0) is used.
	MaxConcurrent int
	// Context ends the pool. Once it is done, scheduled functions are
	// dropped, including actor drains: an actor whose drain was dropped
	// keeps its entries queued and never runs again. Cancel it only when
	// the actors on the pool are being discarded.
	Context context.Context
	Logger  *slog.Logger
	Metrics ActorMetrics
}

// Pool runs each scheduled function on its own goroutine, bounded by a
// semaphore. Functions scheduled after the context is cancelled are
// dropped.
type Pool struct {
	name     string
	ctx      context.Context
	log      *slog.Logger
	inflight atomic.Int32
	sem      chan struct{}
	wg       sync.WaitGroup
	metrics  ActorMetrics
}

func NewPool(opts PoolOptions) *Pool {
	if opts.Name == "" {
		opts.Name = "pool"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}
	return &Pool{
		name:    opts.Name,
		ctx:     opts.Context,
		log:     opts.Logger.With(slog.String("executor", opts.Name)),
		sem:     make(chan struct{}, opts.MaxConcurrent),
		metrics: opts.Metrics,
	}
}

func (p *Pool) Schedule(f func()) {
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case <-p.ctx.Done():
			return
		case p.sem <- struct{}{}:
		}

		count := p.inflight.Add(1)
		p.metrics.ExecutorInflight(p.name, int(count))
		defer func() {
			<-p.sem
			count := p.inflight.Add(-1)
			p.metrics.ExecutorInflight(p.name, int(count))
		}()

		execctx.Named(p.name, func() { runTask(p.log, p.metrics, p.name, f) })
	}()
}

// Wait blocks until every scheduled function has returned or was dropped.
func (p *Pool) Wait() { p.wg.Wait() }

func runTask(log *slog.Logger, m ActorMetrics, name string, f func()) {
	defer m.ExecutorTaskDuration(name).ObserveDuration()
	defer func() {
		if r := recover(); r != nil {
			m.ExecutorTaskCompleted(name, false)
			if cv, ok := r.(*async.ContractViolation); ok {
				panic(cv)
			}
			log.Error("scheduled task panicked", slog.Any("recovered", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	f()
	m.ExecutorTaskCompleted(name, true)
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *Pool
)

// DefaultExecutor is the pool used by actors created without an executor.
func DefaultExecutor() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(PoolOptions{Name: "default"})
	})
	return defaultPool
}

// ---- Sharded ----

type ShardedOptions struct {
	Name  string
	Lanes int
	// Seed personalises the key to lane mapping.
	Seed    string
	Logger  *slog.Logger
	Metrics ActorMetrics
}

// Sharded runs functions on a fixed set of lanes, one goroutine each. A key
// bound with Bind always maps to the same lane (rendezvous hashing), which
// gives actors a stable execution affinity.
type Sharded struct {
	name    string
	names   []string
	lanes   map[string]*lane
	order   []*lane
	seed    string
	next    atomic.Uint64
	log     *slog.Logger
	metrics ActorMetrics
	wg      sync.WaitGroup
	once    sync.Once
}

func NewSharded(opts ShardedOptions) *Sharded {
	if opts.Name == "" {
		opts.Name = "lane"
	}
	if opts.Lanes <= 0 {
		opts.Lanes = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}

	s := &Sharded{
		name:    opts.Name,
		lanes:   make(map[string]*lane, opts.Lanes),
		seed:    opts.Seed,
		log:     opts.Logger.With(slog.String("executor", opts.Name)),
		metrics: opts.Metrics,
	}
	for i := 0; i < opts.Lanes; i++ {
		l := &lane{name: fmt.Sprintf("%s-%d", opts.Name, i), wake: make(chan struct{}, 1), stop: make(chan struct{})}
		s.names = append(s.names, l.name)
		s.lanes[l.name] = l
		s.order = append(s.order, l)
		s.wg.Add(1)
		go s.runLane(l)
	}
	return s
}

// Schedule runs f on the next lane, round robin.
func (s *Sharded) Schedule(f func()) {
	i := s.next.Add(1) - 1
	s.order[i%uint64(len(s.order))].push(f)
}

// Bind returns an Executor that always schedules on the lane owning key.
func (s *Sharded) Bind(key string) Executor {
	name, _ := hrw.Best(key, s.names, s.seed)
	return s.lanes[name]
}

// LaneOf returns the name of the lane key is bound to.
func (s *Sharded) LaneOf(key string) string {
	name, _ := hrw.Best(key, s.names, s.seed)
	return name
}

// Close stops every lane after it has run the functions already queued.
func (s *Sharded) Close() {
	s.once.Do(func() {
		for _, l := range s.order {
			close(l.stop)
		}
	})
	s.wg.Wait()
}

func (s *Sharded) runLane(l *lane) {
	defer s.wg.Done()
	execctx.SetName(l.name)
	defer execctx.ClearName()

	for {
		f, ok := l.pop()
		if ok {
			s.metrics.ExecutorInflight(l.name, 1)
			runTask(s.log, s.metrics, l.name, f)
			s.metrics.ExecutorInflight(l.name, 0)
			continue
		}
		select {
		case <-l.wake:
		case <-l.stop:
			if l.empty() {
				return
			}
		}
	}
}

type lane struct {
	name  string
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
	stop  chan struct{}
}

func (l *lane) Schedule(f func()) { l.push(f) }

func (l *lane) push(f func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, f)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) == 0
}

func (l *lane) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	f := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return f, true
}

// ---- Inline ----

type inline struct{}

func (inline) Schedule(f func()) { f() }

// Inline returns an Executor that runs f on the calling goroutine before
// Schedule returns.
func Inline() Executor { return inline{} }

var (
	_ Executor         = (*Pool)(nil)
	_ AffinityExecutor = (*Sharded)(nil)
	_ Executor         = (*lane)(nil)
)
