// Package metrics provides Prometheus metrics for the HTTP server and the data pipeline.
//
// HTTP:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - http_response_bytes: Histogram of body sizes with path label
//
// Pipeline:
//   - catalog_refresh_total: Counter with result label
//   - catalog_files: Gauge of files per dataset kind in the current catalog
//   - table_load_total: Counter with kind and result labels
//   - table_load_duration_seconds: Histogram with kind label
//   - listing_unmatched_total: Counter of listing names not found in the drug master
//
// All metrics are registered with the Prometheus default registry during package initialization.
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

	HTTPResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_bytes",
			Help: "HTTP response body size",
			// full drug-master CSVs run to tens of megabytes
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"path"},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	CatalogRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Data catalog refresh attempts",
		},
		[]string{"result"},
	)

	CatalogFiles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_files",
			Help: "Files listed in the current data catalog",
		},
		[]string{"kind"},
	)

	TableLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_load_total",
			Help: "Dataset loads",
		},
		[]string{"kind", "result"},
	)

	TableLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_load_duration_seconds",
			Help:    "Dataset load latency, download included",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	ListingUnmatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_unmatched_total",
			Help: "Listing names that could not be matched to the drug master",
		},
		[]string{"side"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(HTTPResponseBytes)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(CatalogRefreshTotal)
	prometheus.MustRegister(CatalogFiles)
	prometheus.MustRegister(TableLoadTotal)
	prometheus.MustRegister(TableLoadDuration)
	prometheus.MustRegister(ListingUnmatchedTotal)
}
