package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turingvideo/couchbase-lite-core/core/actor"
	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestNewActorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	require.NotNil(t, m)

	timer := m.MessageDuration("save")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.MessageProcessed("save", true)
	m.MessageProcessed("save", false)
	m.MessagePanic("save")

	m.MailboxDepth("actor-123", 10)
	m.DrainYield("actor-123")
	m.Stalled("actor-123")

	m.ExecutorInflight("pool", 5)
	timer = m.ExecutorTaskDuration("pool")
	assert.NotNil(t, timer)
	timer.ObserveDuration()
	m.ExecutorTaskCompleted("pool", true)
	m.ExecutorTaskCompleted("pool", false)

	got := gather(t, reg)
	assert.Equal(t, 1.0, got["litecore_actor_entry_duration_seconds"])
	assert.Equal(t, 2.0, got["litecore_actor_entries_total"])
	assert.Equal(t, 1.0, got["litecore_actor_panics_total"])
	assert.Equal(t, 10.0, got["litecore_actor_mailbox_depth"])
	assert.Equal(t, 1.0, got["litecore_actor_drain_yields_total"])
	assert.Equal(t, 1.0, got["litecore_actor_stalls_total"])
	assert.Equal(t, 5.0, got["litecore_executor_inflight"])
	assert.Equal(t, 1.0, got["litecore_executor_task_duration_seconds"])
	assert.Equal(t, 2.0, got["litecore_executor_tasks_total"])
}

func TestActorMetrics_wired(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	a := actor.New(actor.Options{ID: "actor-1", Executor: actor.Inline(), Metrics: m})
	a.Enqueue("save", func() {})
	a.Enqueue("boom", func() { panic("boom") })

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["litecore_actor_entries_total"])
	assert.Equal(t, 1.0, got["litecore_actor_panics_total"])
	assert.Equal(t, 2.0, got["litecore_actor_entry_duration_seconds"])
}

func TestDiagCollector(t *testing.T) {
	var r diag.Registry
	r.FrameRetained()
	r.FrameRetained()
	r.FrameReleased()
	r.AddTruncatedEnqueue(3)
	r.AddTruncatedExecuted(4)

	c := NewDiagCollector(&r)
	assert.Equal(t, 4, testutil.CollectAndCount(c))

	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	got := gather(t, reg)
	assert.Equal(t, 1.0, got["litecore_async_live_frames"])
	assert.Equal(t, 2.0, got["litecore_async_frames_created_total"])
	assert.Equal(t, 3.0, got["litecore_history_truncated_enqueue_total"])
	assert.Equal(t, 4.0, got["litecore_history_truncated_execution_total"])

	r.FrameReleased()
	assert.Equal(t, 0.0, gather(t, reg)["litecore_async_live_frames"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg, &diag.Registry{})

	require.NotNil(t, m)
	require.NotNil(t, m.Actor)
	require.NotNil(t, m.Diag)

	m.Actor.MessageProcessed("test", true)

	got := gather(t, reg)
	assert.Contains(t, got, "litecore_async_live_frames")
	assert.Contains(t, got, "litecore_actor_entries_total")
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
