// Package metrics holds the Prometheus collectors of the content API. Each
// Metrics value owns a private registry, so tests can build as many as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_api"

// Dispatch outcomes.
const (
	OutcomeServed       = "served"
	OutcomeNoMatch      = "no_match"
	OutcomeAuthFailed   = "auth_failed"
	OutcomeBodyRejected = "body_rejected"
	OutcomeError        = "error"
)

// Metrics groups every collector of the service.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	mutations        *prometheus.CounterVec
	auditWrites      *prometheus.CounterVec
	auditPruned      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "route"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Dynamic endpoint dispatches by outcome.",
			},
			[]string{"outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Time from match to rendered response.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"outcome"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "content",
				Name:      "mutations_total",
				Help:      "Content mutations by operation and result.",
			},
			[]string{"operation", "result"},
		),
		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "writes_total",
				Help:      "Audit record writes by result.",
			},
			[]string{"result"},
		),
		auditPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "pruned_total",
				Help:      "Audit records deleted by retention.",
			},
		),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.dispatches,
		m.dispatchDuration,
		m.mutations,
		m.auditWrites,
		m.auditPruned,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveDispatch records one dispatch and how long it took.
func (m *Metrics) ObserveDispatch(outcome string, elapsed time.Duration) {
	m.dispatches.WithLabelValues(outcome).Inc()
	m.dispatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveMutation records one content mutation.
func (m *Metrics) ObserveMutation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.mutations.WithLabelValues(operation, result).Inc()
}

// ObserveAuditWrite records one audit write.
func (m *Metrics) ObserveAuditWrite(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.auditWrites.WithLabelValues(result).Inc()
}

// AddPruned counts audit records removed by retention.
func (m *Metrics) AddPruned(n int64) {
	m.auditPruned.Add(float64(n))
}

// InstrumentHandler records request counts and latency per chi route pattern.
// Unmatched requests are labelled by the literal "unmatched" to bound cardinality.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
