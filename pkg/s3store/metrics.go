package s3store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

type metrics struct {
	uploads        *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	uploadDuration prometheus.Histogram
	removals       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "s3upload",
				Name:      "uploads_total",
				Help:      "Total number of handled uploads by result",
			},
			[]string{"result"},
		),
		uploadedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "s3upload",
				Name:      "uploaded_bytes_total",
				Help:      "Total number of bytes stored by successful uploads",
			},
		),
		uploadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "s3upload",
				Name:      "upload_duration_seconds",
				Help:      "Duration of successful uploads including parameter resolution",
				Buckets:   prometheus.DefBuckets,
			},
		),
		removals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "s3upload",
				Name:      "removals_total",
				Help:      "Total number of object removals by result",
			},
			[]string{"result"},
		),
	}
}

// Nil receivers are no-ops.

func (m *metrics) uploadSucceeded(size int64, seconds float64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(resultSuccess).Inc()
	m.uploadedBytes.Add(float64(size))
	m.uploadDuration.Observe(seconds)
}

func (m *metrics) uploadFailed() {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(resultFailure).Inc()
}

func (m *metrics) removed(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.removals.WithLabelValues(resultFailure).Inc()
		return
	}
	m.removals.WithLabelValues(resultSuccess).Inc()
}
