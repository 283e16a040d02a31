package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReconcile("applied")
		m.ObserveSweep(3, nil)
		m.ObservePreference(nil)
		m.ObserveNotification("info", nil)
		m.ObserveGenerated(2)
	})
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveReconcile("applied")
	m.ObserveReconcile("applied")
	m.ObserveSweep(3, nil)
	m.ObserveSweep(0, errors.New("db down"))
	m.ObserveNotification("payment_approved", errors.New("insert failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReconcileTotal.WithLabelValues("applied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweepTransitions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("payment_approved", "error")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/fees/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fees/42", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/fees/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "billing_http_requests_total")
}
