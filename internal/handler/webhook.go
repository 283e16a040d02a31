package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/Dan9191/studio-billing/internal/utils"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 64 << 10

var webhookOK = map[string]string{"status": "ok"}

// MercadoPagoWebhook receives payment notifications. Anything recognised is
// acknowledged with 200 so the processor stops retrying; only malformed
// input and transient failures get another status.
func (h *Handler) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var n models.WebhookNotification
	if len(body) > 0 {
		if err := json.Unmarshal(body, &n); err != nil {
			h.log.WithField("payload", string(body)).Warn("Malformed webhook body")
			writeError(w, http.StatusBadRequest, "malformed notification")
			return
		}
	}
	// query parameters carry the same fields on some notification types
	q := r.URL.Query()
	if n.Type == "" {
		n.Type = q.Get("type")
	}
	paymentID := q.Get("data.id")
	if paymentID == "" {
		paymentID = n.Data.ID.String()
	}

	logger := h.log.WithFields(logrus.Fields{
		"type":       n.Type,
		"action":     n.Action,
		"payment_id": paymentID,
		"payload":    string(body),
	})

	if n.Type == "" {
		logger.Warn("Webhook without a type")
		writeError(w, http.StatusBadRequest, "missing notification type")
		return
	}

	if h.cfg.MPWebhookSecret != "" {
		err := utils.VerifyWebhookSignature(r.Header.Get("x-signature"), r.Header.Get("x-request-id"), paymentID, h.cfg.MPWebhookSecret)
		if err != nil {
			logger.WithError(err).Warn("Rejected webhook signature")
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	if n.Type != "payment" {
		logger.Debug("Ignoring non-payment notification")
		writeJSON(w, http.StatusOK, webhookOK)
		return
	}
	if paymentID == "" {
		logger.Warn("Payment notification without data.id")
		writeError(w, http.StatusBadRequest, "missing data.id")
		return
	}

	outcome, err := h.svc.HandlePaymentNotification(r.Context(), paymentID)
	if err != nil {
		switch models.KindOf(err) {
		case models.KindNotFound, models.KindValidation:
			// permanent, a retry would fail the same way
			logger.WithError(err).Warn("Payment notification could not be matched to a fee")
			writeJSON(w, http.StatusOK, webhookOK)
		case models.KindTransient:
			logger.WithError(err).Error("Payment notification failed, processor will retry")
			writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
		default:
			logger.WithError(err).Error("Payment notification failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	logger.WithField("outcome", outcome).Info("Payment notification processed")
	writeJSON(w, http.StatusOK, webhookOK)
}
