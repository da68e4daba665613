// Package metrics provides Prometheus metrics for the dosing API.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain metrics cover recommendation outcomes, fallback substitutions,
// RxNorm calls, brand cache hits and catalog reloads.
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	FallbackSubstitutionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fallback_substitutions_total",
			Help: "Recommendations where a low-bioavailability drug was substituted",
		},
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Time spent scaling and scoring one feature vector",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)

	RxNormRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_requests_total",
			Help: "Outbound RxNorm calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RxNormBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rxnorm_circuit_breaker_state",
			Help: "RxNorm circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	BrandCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brand_cache_lookups_total",
			Help: "Brand alias cache lookups by result",
		},
		[]string{"result"},
	)

	CatalogRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_records",
			Help: "Records in the current catalog snapshot by source",
		},
		[]string{"source"},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reload attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(FallbackSubstitutionsTotal)
	prometheus.MustRegister(PredictionDuration)
	prometheus.MustRegister(RxNormRequestsTotal)
	prometheus.MustRegister(RxNormBreakerState)
	prometheus.MustRegister(BrandCacheLookupsTotal)
	prometheus.MustRegister(CatalogRecords)
	prometheus.MustRegister(CatalogReloadsTotal)
}
