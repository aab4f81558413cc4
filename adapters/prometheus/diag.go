package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

// DiagCollector exports a diag.Registry. Values are read at scrape time.
type DiagCollector struct {
	reg *diag.Registry

	liveFrames        *prometheus.Desc
	framesCreated     *prometheus.Desc
	truncatedEnqueue  *prometheus.Desc
	truncatedExecuted *prometheus.Desc
}

func NewDiagCollector(r *diag.Registry) *DiagCollector {
	if r == nil {
		r = diag.Default()
	}
	return &DiagCollector{
		reg: r,
		liveFrames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "async", "live_frames"),
			"Suspended continuation frames not yet completed", nil, nil),
		framesCreated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "async", "frames_created_total"),
			"Continuation frames that suspended at least once", nil, nil),
		truncatedEnqueue: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "history", "truncated_enqueue_total"),
			"Enqueue history entries evicted", nil, nil),
		truncatedExecuted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "history", "truncated_execution_total"),
			"Execution history entries evicted", nil, nil),
	}
}

func (c *DiagCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.liveFrames
	ch <- c.framesCreated
	ch <- c.truncatedEnqueue
	ch <- c.truncatedExecuted
}

func (c *DiagCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.reg.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.liveFrames, prometheus.GaugeValue, float64(s.LiveFrames))
	ch <- prometheus.MustNewConstMetric(c.framesCreated, prometheus.CounterValue, float64(s.FramesCreated))
	ch <- prometheus.MustNewConstMetric(c.truncatedEnqueue, prometheus.CounterValue, float64(s.TruncatedEnqueue))
	ch <- prometheus.MustNewConstMetric(c.truncatedExecuted, prometheus.CounterValue, float64(s.TruncatedExecuted))
}

var _ prometheus.Collector = (*DiagCollector)(nil)
