// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog Metrics
	CatalogLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melora_catalog_loads_total",
			Help: "Total number of catalog load attempts",
		},
		[]string{"result"}, // "ok", "error"
	)

	CatalogLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "melora_catalog_load_duration_seconds",
			Help:    "Duration of catalog load, dedup and classification in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	CatalogTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "melora_catalog_tracks",
			Help: "Number of tracks in the loaded catalog after deduplication",
		},
	)

	// Recommendation Metrics
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melora_recommendations_total",
			Help: "Total number of recommendation queries",
		},
		[]string{"query"}, // "mood", "genre", "mood_genre"
	)

	EmptyRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "melora_recommendations_empty_total",
			Help: "Total number of recommendation queries that matched no tracks",
		},
		[]string{"query"},
	)

	RecommendationSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "melora_recommendation_size",
			Help:    "Number of tracks returned per recommendation query",
			Buckets: []float64{1, 5, 10, 20, 50},
		},
		[]string{"query"},
	)

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "melora_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
