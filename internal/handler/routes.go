package handler

import (
	"net/http"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/metrics"
	"github.com/Dan9191/studio-billing/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every route of the billing API
func NewRouter(h *Handler, cfg *config.Config, m *metrics.Metrics, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(log), m.Middleware)

	// Public routes
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}
	r.HandleFunc("/webhooks/mercadopago", h.MercadoPagoWebhook).Methods("POST")

	// Export accepts the static export token as well as an admin token
	r.Handle("/admin/export/fees", middleware.ExportAuth(cfg)(http.HandlerFunc(h.ExportFees))).Methods("GET")

	// Admin routes
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RequireAdmin)
	admin.HandleFunc("/fees", h.ListFees).Methods("GET")
	admin.HandleFunc("/fees", h.CreateFee).Methods("POST")
	admin.HandleFunc("/fees/{id:[0-9]+}", h.GetFee).Methods("GET")
	admin.HandleFunc("/fees/{id:[0-9]+}", h.UpdateFee).Methods("PUT")
	admin.HandleFunc("/fees/{id:[0-9]+}", h.DeleteFee).Methods("DELETE")
	admin.HandleFunc("/fees/{id:[0-9]+}/cancel", h.CancelFee).Methods("POST")
	admin.HandleFunc("/billing-cycles", h.GenerateBillingCycle).Methods("POST")
	admin.HandleFunc("/entries", h.ListEntries).Methods("GET")
	admin.HandleFunc("/entries", h.CreateEntry).Methods("POST")
	admin.HandleFunc("/entries/{id:[0-9]+}", h.GetEntry).Methods("GET")
	admin.HandleFunc("/entries/{id:[0-9]+}", h.UpdateEntry).Methods("PUT")
	admin.HandleFunc("/entries/{id:[0-9]+}", h.DeleteEntry).Methods("DELETE")
	admin.HandleFunc("/reports/summary", h.Summary).Methods("GET")

	// Protected routes
	user := r.NewRoute().Subrouter()
	user.Use(middleware.AuthMiddleware(cfg))
	user.HandleFunc("/fees/{id:[0-9]+}/preference", h.CreatePreference).Methods("POST")
	user.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	user.HandleFunc("/notifications/{id:[0-9]+}/read", h.MarkNotificationRead).Methods("POST")

	return r
}
