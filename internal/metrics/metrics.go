// Package metrics exposes Prometheus collectors for the retrieval gateway.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal               *prometheus.CounterVec
	searchDurationSeconds       prometheus.Histogram
	backendQueriesTotal         *prometheus.CounterVec
	backendQueryDurationSeconds *prometheus.HistogramVec
	documentsUploadedTotal      prometheus.Counter
	documentsDeletedTotal       prometheus.Counter
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_searches_total",
				Help: "Total number of federated searches, labeled by outcome.",
			},
			[]string{"status"},
		)

		searchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_search_duration_seconds",
				Help:    "Histogram of end-to-end federated search latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		backendQueriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_backend_queries_total",
				Help: "Total number of backend queries, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "status"},
		)

		backendQueryDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_backend_query_duration_seconds",
				Help:    "Histogram of per-backend query latencies, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		)

		documentsUploadedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_documents_uploaded_total",
				Help: "Total number of documents uploaded through the write endpoint.",
			},
		)

		documentsDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_documents_deleted_total",
				Help: "Total number of documents deleted through the write endpoint.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearch records one federated search call.
func ObserveSearch(status string, duration time.Duration) {
	Init()
	searchesTotal.WithLabelValues(status).Inc()
	searchDurationSeconds.Observe(duration.Seconds())
}

// ObserveBackendQuery records one backend query within a fan-out.
func ObserveBackendQuery(endpoint, status string, duration time.Duration) {
	Init()
	backendQueriesTotal.WithLabelValues(endpoint, status).Inc()
	backendQueryDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveUpload records documents accepted by the write endpoint.
func ObserveUpload(count int) {
	Init()
	documentsUploadedTotal.Add(float64(count))
}

// ObserveDelete records documents removed by the write endpoint.
func ObserveDelete(count int) {
	Init()
	documentsDeletedTotal.Add(float64(count))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
