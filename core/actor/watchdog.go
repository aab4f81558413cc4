package actor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type WatchdogOptions struct {
	// Interval between checks. Defaults to one second.
	Interval time.Duration
	// StallAfter is how long a non-empty mailbox may go without starting an
	// entry before it is reported. Defaults to ten seconds.
	StallAfter time.Duration
	Logger     *slog.Logger
	Metrics    ActorMetrics
	// OnStall is called with the stalled actor and its call history.
	OnStall func(a *Actor, dump string)
}

// Watchdog reports actors whose mailbox stopped making progress, logging
// their call history so that a hang can be analysed after the fact.
type Watchdog struct {
	opts WatchdogOptions
	log  *slog.Logger

	mu     sync.Mutex
	actors map[string]*Actor
}

func NewWatchdog(opts WatchdogOptions) *Watchdog {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.StallAfter <= 0 {
		opts.StallAfter = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}
	return &Watchdog{
		opts:   opts,
		log:    opts.Logger.With(slog.String("component", "watchdog")),
		actors: make(map[string]*Actor),
	}
}

func (w *Watchdog) Watch(a *Actor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors[a.ID()] = a
}

func (w *Watchdog) Unwatch(a *Actor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.actors, a.ID())
}

// Check reports every watched actor stalled at now and returns them.
func (w *Watchdog) Check(now time.Time) []*Actor {
	w.mu.Lock()
	actors := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		actors = append(actors, a)
	}
	w.mu.Unlock()

	var stalled []*Actor
	for _, a := range actors {
		d := a.stalledFor(now)
		if d < w.opts.StallAfter {
			continue
		}
		stalled = append(stalled, a)

		var sb strings.Builder
		if err := a.Dump(&sb); err != nil {
			w.log.Error("failed to dump call history", slog.String("actor", a.ID()), slog.Any("error", err))
		}
		w.opts.Metrics.Stalled(a.ID())
		w.log.Warn("actor stalled",
			slog.String("actor", a.ID()),
			slog.String("name", a.Name()),
			slog.Duration("stalled_for", d),
			slog.Int("pending", a.Pending()),
			slog.String("history", sb.String()),
		)
		if w.opts.OnStall != nil {
			w.opts.OnStall(a, sb.String())
		}
	}
	return stalled
}

// Run checks every Interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) {
	t := time.NewTicker(w.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			w.Check(now)
		}
	}
}
