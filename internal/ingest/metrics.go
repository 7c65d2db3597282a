package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ingestion outcomes per source.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.HistogramVec
	swept    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novacode",
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Ingestion requests by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "novacode",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "End-to-end ingestion latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"source"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "novacode",
			Subsystem: "ingest",
			Name:      "stored_bytes",
			Help:      "Size of stored archives.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"source"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novacode",
			Subsystem: "ingest",
			Name:      "reconciled_total",
			Help:      "Pending records marked failed by the reconciliation sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.bytes, m.swept)
	}
	return m
}

func (m *Metrics) observe(source string, stage Stage, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source, stage.outcome()).Inc()
	m.duration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeStored(source string, size int64) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues(source).Observe(float64(size))
}

func (m *Metrics) observeSwept(n int) {
	if m == nil {
		return
	}
	m.swept.Add(float64(n))
}
