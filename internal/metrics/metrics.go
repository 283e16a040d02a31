package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the billing service.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ReconcileTotal     *prometheus.CounterVec
	SweepTransitions   prometheus.Counter
	SweepRunsTotal     *prometheus.CounterVec
	PreferencesTotal   *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	FeesGenerated      prometheus.Counter

	registry prometheus.Gatherer
}

// New creates and registers all metrics on registry
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_reconcile_total",
				Help: "Payment notifications reconciled, by outcome",
			},
			[]string{"outcome"},
		),
		SweepTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_sweep_transitions_total",
				Help: "Fees moved from pending to overdue by the sweeper",
			},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_sweep_runs_total",
				Help: "Overdue sweeper runs, by result",
			},
			[]string{"result"},
		),
		PreferencesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_payment_preferences_total",
				Help: "Payment preferences requested, by result",
			},
			[]string{"result"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_notifications_total",
				Help: "Notifications emitted, by kind and result",
			},
			[]string{"kind", "result"},
		),
		FeesGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_fees_generated_total",
				Help: "Fees created by billing-cycle generation",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReconcileTotal,
		m.SweepTransitions,
		m.SweepRunsTotal,
		m.PreferencesTotal,
		m.NotificationsTotal,
		m.FeesGenerated,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSweep(transitions int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SweepRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SweepRunsTotal.WithLabelValues("ok").Inc()
	m.SweepTransitions.Add(float64(transitions))
}

func (m *Metrics) ObservePreference(err error) {
	if m == nil {
		return
	}
	m.PreferencesTotal.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) ObserveGenerated(n int) {
	if m == nil {
		return
	}
	m.FeesGenerated.Add(float64(n))
}

// Middleware records request counts and latencies per route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
