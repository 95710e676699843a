// Package metrics holds the Prometheus collectors of the backend and of the
// sync client. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	broadcastDrops  prometheus.Counter

	refreshes   *prometheus.CounterVec
	writes      *prometheus.CounterVec
	pushPatches prometheus.Counter
}

// New registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freeday_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freeday_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		broadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freeday_broadcast_dropped_total",
			Help: "Change notifications dropped because a subscriber was too slow",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freeday_sync_refreshes_total",
			Help: "Bulk availability refreshes by trigger and result",
		}, []string{"trigger", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freeday_sync_writes_total",
			Help: "Optimistic availability writes by result",
		}, []string{"result"}),
		pushPatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freeday_sync_push_patches_total",
			Help: "Availability cells patched from change notifications",
		}),
	}

	registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.broadcastDrops,
		m.refreshes,
		m.writes,
		m.pushPatches,
		collectors.NewGoCollector(),
	)
	return m
}

// Register adds extra collectors, e.g. a subscriber gauge owned by the hub.
func (m *Metrics) Register(cs ...prometheus.Collector) {
	if m == nil {
		return
	}
	m.registry.MustRegister(cs...)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) BroadcastDropped() {
	if m == nil {
		return
	}
	m.broadcastDrops.Inc()
}

func (m *Metrics) Refresh(trigger string, err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(trigger, result(err)).Inc()
}

func (m *Metrics) Write(err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) PushPatch() {
	if m == nil {
		return
	}
	m.pushPatches.Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
