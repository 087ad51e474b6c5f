// Package metrics holds the Prometheus collectors of the transfer engine and
// the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	transfers        *prometheus.CounterVec
	transferRetries  prometheus.Counter
	transferDuration prometheus.Histogram
	bulkItems        *prometheus.CounterVec
	removals         *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lokator",
			Name:      "transfers_total",
			Help:      "Single-item transfers by outcome.",
		}, []string{"outcome"}),
		transferRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lokator",
			Name:      "transfer_retries_total",
			Help:      "Item transactions retried after a concurrency conflict.",
		}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lokator",
			Name:      "transfer_duration_seconds",
			Help:      "Time spent transferring one item, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lokator",
			Name:      "bulk_transfer_items_total",
			Help:      "Items processed by bulk transfers by result.",
		}, []string{"result"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lokator",
			Name:      "removals_total",
			Help:      "Assignment removals by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lokator",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lokator",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		m.transfers, m.transferRetries, m.transferDuration, m.bulkItems, m.removals,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransfer records one finished single-item transfer. Outcome is a
// placement name or "error".
func (m *Metrics) ObserveTransfer(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(took.Seconds())
}

// ObserveRetry records one retried item transaction.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.transferRetries.Inc()
}

// ObserveBulk records the per-item results of one bulk transfer.
func (m *Metrics) ObserveBulk(transferred, failed int) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues("transferred").Add(float64(transferred))
	m.bulkItems.WithLabelValues("failed").Add(float64(failed))
}

// ObserveRemoval records one removal attempt.
func (m *Metrics) ObserveRemoval(outcome string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(took.Seconds())
}
