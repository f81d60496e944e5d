package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the dashboard API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	datasetLoad     *prometheus.HistogramVec
	datasetRecords  prometheus.Gauge
	datasetDropped  prometheus.Gauge
	viewDuration    prometheus.Histogram
	viewRecords     prometheus.Histogram
	sessionActions  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	datasetLoad := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ppdb_dataset_load_seconds",
		Help:    "Duration of admission dataset loads",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "result"})

	datasetRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppdb_dataset_records",
		Help: "Admission records retained after loading",
	})

	datasetDropped := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppdb_dataset_dropped_records",
		Help: "Admission records dropped for unparseable coordinates",
	})

	viewDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppdb_view_build_seconds",
		Help:    "Time spent filtering and projecting a dashboard view",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	})

	viewRecords := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppdb_view_records",
		Help:    "Records matched by a dashboard view",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9),
	})

	sessionActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppdb_session_actions_total",
		Help: "Filter session actions by type",
	}, []string{"action", "field"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		datasetLoad, datasetRecords, datasetDropped, viewDuration, viewRecords, sessionActions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		datasetLoad:     datasetLoad,
		datasetRecords:  datasetRecords,
		datasetDropped:  datasetDropped,
		viewDuration:    viewDuration,
		viewRecords:     viewRecords,
		sessionActions:  sessionActions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDatasetLoad records a dataset load attempt and, on success, its size.
func (m *MetricsService) ObserveDatasetLoad(source string, records, dropped int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.datasetLoad.WithLabelValues(source, result).Observe(duration.Seconds())
	if err == nil {
		m.datasetRecords.Set(float64(records))
		m.datasetDropped.Set(float64(dropped))
	}
}

// ObserveView records the cost and size of one computed view.
func (m *MetricsService) ObserveView(records int, duration time.Duration) {
	if m == nil {
		return
	}
	m.viewDuration.Observe(duration.Seconds())
	m.viewRecords.Observe(float64(records))
}

// RecordSessionAction counts filter session mutations.
func (m *MetricsService) RecordSessionAction(action, field string) {
	if m == nil {
		return
	}
	m.sessionActions.WithLabelValues(action, field).Inc()
}
