package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// batchMetrics holds one histogram for tick duration, one counter vector
// for command outcomes, and one gauge for active sessions.
type batchMetrics struct {
	tickDuration      prometheus.Histogram
	ticksProcessed    prometheus.Counter
	commandsProcessed *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

func newBatchMetrics(reg prometheus.Registerer) *batchMetrics {
	return &batchMetrics{
		tickDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_tick_duration_seconds",
			Help:    "batch_tick_duration_seconds tracks how long one drain-apply-commit-broadcast tick takes.",
			Buckets: prometheus.DefBuckets,
		}),
		ticksProcessed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "batch_ticks_processed_total",
			Help: "batch_ticks_processed_total counts ticks that drained at least one record and committed a new version.",
		}),
		commandsProcessed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_commands_processed_total",
				Help: "batch_commands_processed_total counts dispatched commands by their result code.",
			},
			[]string{"result"},
		),
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "batch_active_sessions",
			Help: "batch_active_sessions is a gauge of currently admitted sessions, sampled once per tick.",
		}),
	}
}
