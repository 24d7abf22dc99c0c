package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation on a private registry.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheLookups       *prometheus.CounterVec
	allocations        *prometheus.CounterVec
	allocationDuration prometheus.Observer
	previews           *prometheus.CounterVec
	mailDeliveries     *prometheus.CounterVec
	exports            *prometheus.CounterVec
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
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ripe_allocations_total",
		Help: "RIPE code allocation attempts by submission type and outcome",
	}, []string{"type", "outcome"})

	allocationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ripe_allocation_duration_seconds",
		Help:    "Wall time of the allocation transaction",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	previews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ripe_previews_total",
		Help: "RIPE code previews by outcome",
	}, []string{"outcome"})

	mailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_mail_deliveries_total",
		Help: "Notification e-mail delivery attempts by result",
	}, []string{"result"})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ripe_register_exports_total",
		Help: "Generated register exports by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		allocations, allocationDuration, previews, mailDeliveries, exports, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheLookups:       cacheLookups,
		allocations:        allocations,
		allocationDuration: allocationDuration,
		previews:           previews,
		mailDeliveries:     mailDeliveries,
		exports:            exports,
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

// Registry exposes the underlying registry so callers can add collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveAllocation counts an allocation attempt. Outcome is "success" or an error code.
func (m *MetricsService) ObserveAllocation(submissionType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if submissionType == "" {
		submissionType = "unknown"
	}
	m.allocations.WithLabelValues(submissionType, outcome).Inc()
	m.allocationDuration.Observe(duration.Seconds())
}

// ObservePreview counts a preview request.
func (m *MetricsService) ObservePreview(outcome string) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(outcome).Inc()
}

// ObserveMailDelivery counts a notification e-mail attempt.
func (m *MetricsService) ObserveMailDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "sent"
	}
	m.mailDeliveries.WithLabelValues(result).Inc()
}

// ObserveExport counts a generated register export.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
