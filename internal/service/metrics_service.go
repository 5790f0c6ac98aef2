package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates the Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	batchRuns       *prometheus.CounterVec
	batchItems      *prometheus.CounterVec
	batchDuration   prometheus.Histogram
}

// NewMetricsService registers the collectors.
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

	batchRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saf_batch_runs_total",
		Help: "Total batch generation runs by final status",
	}, []string{"status"})

	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saf_batch_items_total",
		Help: "Total generated batch items by result",
	}, []string{"result"})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "saf_batch_duration_seconds",
		Help:    "Wall time of one batch generation run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, batchRuns, batchItems, batchDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		batchRuns:       batchRuns,
		batchItems:      batchItems,
		batchDuration:   batchDuration,
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveBatchRun records the outcome of one generation run.
func (m *MetricsService) ObserveBatchRun(status string, duration time.Duration) {
	m.batchRuns.WithLabelValues(status).Inc()
	m.batchDuration.Observe(duration.Seconds())
}

// ObserveBatchItem counts one generated item by result.
func (m *MetricsService) ObserveBatchItem(result string) {
	m.batchItems.WithLabelValues(result).Inc()
}
