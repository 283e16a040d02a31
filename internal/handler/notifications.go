package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/studio-billing/internal/middleware"
)

// ListNotifications lists the caller's notifications, ?unread=true for unread only
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.svc.ListNotifications(r.Context(), middleware.UserID(r.Context()), unreadOnly, limit)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	n, err := h.svc.MarkNotificationRead(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
