package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics exposes the engine's request counters and latency to the
// /metrics endpoint.
type EngineMetrics struct {
	Requests  *prometheus.CounterVec
	CacheHits *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recanthology_recommendation_requests_total",
			Help: "Recommendation requests by item kind and mode.",
		}, []string{"kind", "mode"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recanthology_recommendation_cache_hits_total",
			Help: "Recommendation result cache hits by item kind.",
		}, []string{"kind"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recanthology_recommendation_duration_seconds",
			Help:    "Recommendation generation latency by item kind and mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "mode"}),
	}
}

func (m *EngineMetrics) observe(kind, mode string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind, mode).Inc()
	m.Latency.WithLabelValues(kind, mode).Observe(seconds)
}

func (m *EngineMetrics) cacheHit(kind string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(kind).Inc()
}
