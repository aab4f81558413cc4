package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turingvideo/couchbase-lite-core/core/actor"
	"github.com/turingvideo/couchbase-lite-core/core/metrics"
)

// actorMetrics implements actor.ActorMetrics using Prometheus.
type actorMetrics struct {
	entryDuration        *prometheus.HistogramVec
	entriesTotal         *prometheus.CounterVec
	panicTotal           *prometheus.CounterVec
	mailboxDepth         *prometheus.GaugeVec
	drainYields          *prometheus.CounterVec
	stalls               *prometheus.CounterVec
	executorInflight     *prometheus.GaugeVec
	executorTaskDuration *prometheus.HistogramVec
	executorTasksTotal   *prometheus.CounterVec
}

// NewActorMetrics creates a new Prometheus implementation of ActorMetrics.
func NewActorMetrics(reg prometheus.Registerer) actor.ActorMetrics {
	m := &actorMetrics{
		entryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actor_entry_duration_seconds",
			Help:      "Mailbox entry run time in seconds",
			Buckets:   defaultBuckets,
		}, []string{"entry"}),

		entriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_entries_total",
			Help:      "Total number of mailbox entries run",
		}, []string{"entry", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_panics_total",
			Help:      "Total number of panicking entries",
		}, []string{"entry"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_mailbox_depth",
			Help:      "Current mailbox queue depth",
		}, []string{"actor_id"}),

		drainYields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_drain_yields_total",
			Help:      "Drains that hit the batch limit and rescheduled",
		}, []string{"actor_id"}),

		stalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_stalls_total",
			Help:      "Watchdog reports of a mailbox that stopped making progress",
		}, []string{"actor_id"}),

		executorInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executor_inflight",
			Help:      "Number of functions currently running on the executor",
		}, []string{"executor"}),

		executorTaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "executor_task_duration_seconds",
			Help:      "Executor task duration in seconds",
			Buckets:   defaultBuckets,
		}, []string{"executor"}),

		executorTasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executor_tasks_total",
			Help:      "Total number of executor tasks completed",
		}, []string{"executor", "success"}),
	}

	reg.MustRegister(
		m.entryDuration,
		m.entriesTotal,
		m.panicTotal,
		m.mailboxDepth,
		m.drainYields,
		m.stalls,
		m.executorInflight,
		m.executorTaskDuration,
		m.executorTasksTotal,
	)

	return m
}

func (m *actorMetrics) MessageDuration(name string) metrics.Timer {
	return newTimer(m.entryDuration.WithLabelValues(name))
}

func (m *actorMetrics) MessageProcessed(name string, success bool) {
	m.entriesTotal.WithLabelValues(name, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessagePanic(name string) {
	m.panicTotal.WithLabelValues(name).Inc()
}

func (m *actorMetrics) MailboxDepth(actorID string, depth int) {
	m.mailboxDepth.WithLabelValues(actorID).Set(float64(depth))
}

func (m *actorMetrics) DrainYield(actorID string) {
	m.drainYields.WithLabelValues(actorID).Inc()
}

func (m *actorMetrics) Stalled(actorID string) {
	m.stalls.WithLabelValues(actorID).Inc()
}

func (m *actorMetrics) ExecutorInflight(executor string, count int) {
	m.executorInflight.WithLabelValues(executor).Set(float64(count))
}

func (m *actorMetrics) ExecutorTaskDuration(executor string) metrics.Timer {
	return newTimer(m.executorTaskDuration.WithLabelValues(executor))
}

func (m *actorMetrics) ExecutorTaskCompleted(executor string, success bool) {
	m.executorTasksTotal.WithLabelValues(executor, boolToStr(success)).Inc()
}

var _ actor.ActorMetrics = (*actorMetrics)(nil)
