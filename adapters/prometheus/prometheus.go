// Package prometheus provides Prometheus implementations of the engine's
// metrics interfaces and a collector for the process-wide diagnostic
// counters.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
	"github.com/turingvideo/couchbase-lite-core/core/metrics"
)

const namespace = "litecore"

func newTimer(h prometheus.Observer) metrics.Timer {
	start := time.Now()
	return metrics.TimerFunc(func() {
		h.Observe(time.Since(start).Seconds())
	})
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// AllMetrics holds everything the engine exports.
type AllMetrics struct {
	Actor *actorMetrics
	Diag  *DiagCollector
}

// NewAllMetrics registers actor metrics and a collector over the
// diagnostic counters of r. If r is nil, diag.Default() is used.
func NewAllMetrics(reg prometheus.Registerer, r *diag.Registry) *AllMetrics {
	d := NewDiagCollector(r)
	reg.MustRegister(d)
	return &AllMetrics{
		Actor: NewActorMetrics(reg).(*actorMetrics),
		Diag:  d,
	}
}

func boolToStr(b bool) string { return strconv.FormatBool(b) }
