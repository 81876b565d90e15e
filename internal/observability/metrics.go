package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Collection cycle outcomes. result: success, fetch_<category>,
	// transform_error, storage_error. Watch for: any non-success trend.
	CollectionCyclesTotal *prometheus.CounterVec

	// Full fetch→normalize→persist cycle latency.
	CycleDuration prometheus.Histogram

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Outbound calls delayed by the provider rate limiter.
	WeatherAPIThrottleWaitsTotal prometheus.Counter

	// Rows appended to the weather table. Watch for: flatline = pipeline stalled.
	RecordsInsertedTotal prometheus.Counter

	// Database insert latency. Watch for: p99 growth = db pressure.
	InsertDuration prometheus.Histogram

	// Unix timestamp of the last successful cycle. Alert when now() - value
	// exceeds a few collection intervals.
	LastSuccessfulCollection prometheus.Gauge

	// Ops HTTP surface (/health, /metrics) request rate.
	HTTPRequestsTotal *prometheus.CounterVec

	// Ops HTTP request latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent ops requests in flight.
	HTTPRequestsInFlight prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	CollectionCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectionCyclesTotal",
			Help: "Total number of collection cycles by result",
		},
		[]string{"result"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collectionCycleDurationSeconds",
			Help:    "Full collection cycle latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIThrottleWaitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiThrottleWaitsTotal",
			Help: "Outbound API calls that passed through the rate limiter",
		},
	)
	RecordsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherRecordsInsertedTotal",
			Help: "Total number of weather rows appended",
		},
	)
	InsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatherInsertDurationSeconds",
			Help:    "Database insert latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	LastSuccessfulCollection = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lastSuccessfulCollectionTimestamp",
			Help: "Unix timestamp of the last successful collection cycle",
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of ops HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "Ops HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of ops HTTP requests currently being served",
		},
	)

	registry.MustRegister(
		CollectionCyclesTotal, CycleDuration,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIThrottleWaitsTotal,
		RecordsInsertedTotal, InsertDuration, LastSuccessfulCollection,
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
