// Command actorsim drives a set of actors with concurrent callers whose
// requests chain async values across mailboxes, and reports the engine's
// diagnostics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/turingvideo/couchbase-lite-core/adapters/prometheus"
	"github.com/turingvideo/couchbase-lite-core/core/actor"
	"github.com/turingvideo/couchbase-lite-core/core/async"
	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

func main() {
	configPath := flag.String("config", os.Getenv("ACTORSIM_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	checkErr(err)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.level(),
	}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	checkErr(run(ctx, cfg, log))
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := promadapter.NewAllMetrics(reg, diag.Default())

	exec, closeExec := newExecutor(ctx, cfg, log, m.Actor)
	defer closeExec()

	sim := newSim(ctx, cfg, log, exec, m.Actor)

	wd := actor.NewWatchdog(actor.WatchdogOptions{
		StallAfter: cfg.StallAfter,
		Logger:     log,
		Metrics:    m.Actor,
	})
	for _, a := range sim.actors() {
		wd.Watch(a)
	}

	g, gctx := errgroup.WithContext(ctx)
	wdCtx, stopWatchdog := context.WithCancel(gctx)
	defer stopWatchdog()
	go wd.Run(wdCtx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
	}

	log.Info("==================================")
	log.Info("Starting ...",
		slog.String("executor", cfg.Executor),
		slog.Int("sources", cfg.Sources),
		slog.Int("callers", cfg.Callers),
		slog.Int("requests", cfg.Requests),
	)
	startAt := time.Now()

	for c := 0; c < cfg.Callers; c++ {
		g.Go(func() error { return sim.caller(gctx, c) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	took := time.Since(startAt)
	stopWatchdog()

	// === stats ===
	total := cfg.Callers * cfg.Requests
	snap := diag.Default().Snapshot()
	fmt.Println("==========================================")
	fmt.Printf("total runtime: %.3f seconds\n", took.Seconds())
	fmt.Printf("     requests: %d\n", total)
	fmt.Printf("   requests/s: %d\n", int(float64(total)/took.Seconds()))
	fmt.Printf("  live frames: %d\n", snap.LiveFrames)
	fmt.Printf("frames created: %d\n", snap.FramesCreated)
	fmt.Printf("    truncated: %d enqueue, %d execution\n", snap.TruncatedEnqueue, snap.TruncatedExecuted)
	fmt.Printf("   goroutines: %d\n", runtime.NumGoroutine())
	fmt.Println("==========================================")
	if err := sim.agg.Dump(os.Stdout); err != nil {
		return err
	}

	if srv != nil {
		if cfg.Linger > 0 {
			log.Info("lingering for scrapes", slog.Duration("linger", cfg.Linger))
			select {
			case <-ctx.Done():
			case <-time.After(cfg.Linger):
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

func newExecutor(ctx context.Context, cfg Config, log *slog.Logger, m actor.ActorMetrics) (actor.Executor, func()) {
	switch cfg.Executor {
	case "sharded":
		s := actor.NewSharded(actor.ShardedOptions{Name: "lane", Lanes: cfg.Lanes, Logger: log, Metrics: m})
		return s, s.Close
	default:
		p := actor.NewPool(actor.PoolOptions{Name: "pool", MaxConcurrent: cfg.MaxConcurrent, Context: ctx, Logger: log, Metrics: m})
		return p, func() {}
	}
}

// === Domain ===

type (
	// fetch asks a source for the value stored under Key.
	fetch struct{ Key int }
	// sumReq asks the aggregator for the sum of the values of Keys.
	sumReq struct{ Keys []int }
)

type sim struct {
	sources  []*actor.Actor
	agg      *actor.Actor
	requests int
}

func newSim(ctx context.Context, cfg Config, log *slog.Logger, exec actor.Executor, m actor.ActorMetrics) *sim {
	opts := func(name string) actor.Options {
		return actor.Options{
			Name:         name,
			Executor:     exec,
			Context:      ctx,
			Logger:       log,
			Metrics:      m,
			HistoryLimit: cfg.HistoryLimit,
		}
	}

	s := &sim{requests: cfg.Requests}
	for i := 0; i < cfg.Sources; i++ {
		s.sources = append(s.sources, actor.New(opts(fmt.Sprintf("source-%d", i)),
			actor.HandleRequest[fetch, int](func(_ actor.HandlerCtx, f fetch) (int, error) {
				return f.Key * f.Key, nil
			}),
		))
	}
	s.agg = actor.New(opts("aggregator"),
		actor.HandleAsync[sumReq, int](s.sum),
	)
	return s
}

func (s *sim) actors() []*actor.Actor {
	return append([]*actor.Actor{s.agg}, s.sources...)
}

// sum fans out one fetch per key and resumes on the aggregator's mailbox
// after each of them.
func (s *sim) sum(hc actor.HandlerCtx, req sumReq) *async.Value[int] {
	var (
		i, total, v int
		self        = hc.Actor()
	)
	return async.Begin(func(f *async.Frame[int]) {
		switch f.At() {
		case 0:
			if i == len(req.Keys) {
				f.Return(total)
				return
			}
			k := req.Keys[i]
			src := s.sources[k%len(s.sources)]
			async.Await(f, 1, actor.Hop(self, actor.Request[fetch, int](src, fetch{Key: k})), &v)
		case 1:
			total += v
			i++
			f.Goto(0)
		}
	})
}

// caller issues its requests one after the other and checks every reply.
func (s *sim) caller(ctx context.Context, id int) error {
	type reply struct {
		sum int
		err error
	}
	ch := make(chan reply, 1)

	for r := 0; r < s.requests; r++ {
		keys := []int{id, r, id + r}
		want := 0
		for _, k := range keys {
			want += k * k
		}

		actor.Request[sumReq, int](s.agg, sumReq{Keys: keys}).Wait(func(sum int, err error) {
			ch <- reply{sum, err}
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case got := <-ch:
			if got.err != nil {
				return fmt.Errorf("caller %d request %d: %w", id, r, got.err)
			}
			if got.sum != want {
				return fmt.Errorf("caller %d request %d: got %d, want %d", id, r, got.sum, want)
			}
		}
	}
	return nil
}

// === Helpers ===

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
