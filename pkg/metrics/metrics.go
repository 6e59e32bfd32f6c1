// Package metrics exposes Prometheus collectors for the client runtime.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional Metrics without guarding every call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apclient"

// Location check outcomes.
const (
	CheckSatisfied = "satisfied"
	CheckPending   = "pending"
	CheckError     = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	locationChecks  *prometheus.CounterVec
	activePollers   prometheus.Gauge
	reconcilePasses *prometheus.CounterVec
	itemsReconciled prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Game state store operations by store, operation and result.",
		}, []string{"store", "op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Latency of game state store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"store", "op"}),
		locationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Location condition evaluations by outcome.",
		}, []string{"result"}),
		activePollers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active_pollers",
			Help:      "Batch pollers currently running.",
		}),
		reconcilePasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Reconciliation passes by whether they changed the game state.",
		}, []string{"changed"}),
		itemsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "item_changes_total",
			Help:      "Item quantity changes applied by reconciliation.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeOperations,
		m.storeLatency,
		m.locationChecks,
		m.activePollers,
		m.reconcilePasses,
		m.itemsReconciled,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveStoreOperation(store, op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOperations.WithLabelValues(store, op, result).Inc()
	m.storeLatency.WithLabelValues(store, op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveLocationCheck(result string) {
	if m == nil {
		return
	}
	m.locationChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) PollerStarted() {
	if m == nil {
		return
	}
	m.activePollers.Inc()
}

func (m *Metrics) PollerStopped() {
	if m == nil {
		return
	}
	m.activePollers.Dec()
}

func (m *Metrics) ObserveReconcile(changes int) {
	if m == nil {
		return
	}
	if changes == 0 {
		m.reconcilePasses.WithLabelValues("false").Inc()
		return
	}
	m.reconcilePasses.WithLabelValues("true").Inc()
	m.itemsReconciled.Add(float64(changes))
}
