package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/Dan9191/studio-billing/internal/service"
	"github.com/shopspring/decimal"
)

type createEntryRequest struct {
	Kind          string           `json:"kind" validate:"required,oneof=expense revenue"`
	Category      string           `json:"category" validate:"required,max=30"`
	Description   string           `json:"description,omitempty" validate:"max=2000"`
	Counterparty  string           `json:"counterparty,omitempty" validate:"max=200"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	DueDate       string           `json:"due_date" validate:"required,datetime=2006-01-02"`
	Status        string           `json:"status,omitempty" validate:"omitempty,oneof=pending paid overdue cancelled"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty" validate:"max=50"`
	Notes         string           `json:"notes,omitempty" validate:"max=2000"`
}

type updateEntryRequest struct {
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=30"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Counterparty  *string          `json:"counterparty,omitempty" validate:"omitempty,max=200"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DueDate       *string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status        *string          `json:"status,omitempty" validate:"omitempty,oneof=pending paid overdue cancelled"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	Notes         *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ListEntries lists expenses and other revenue, filtered by kind, status and month
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		h.writeServiceError(w, r, err, r.URL.Query())
		return
	}
	entries, err := h.svc.ListEntries(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	dueDate, _ := time.Parse("2006-01-02", req.DueDate)
	entry, err := h.svc.CreateEntry(r.Context(), service.CreateEntryInput{
		Kind:          models.EntryKind(req.Kind),
		Category:      req.Category,
		Description:   req.Description,
		Counterparty:  req.Counterparty,
		Amount:        *req.Amount,
		DueDate:       dueDate,
		Status:        models.EntryStatus(req.Status),
		PaidAt:        req.PaidAt,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err, req)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	var req updateEntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := service.UpdateEntryInput{
		Category:      req.Category,
		Description:   req.Description,
		Counterparty:  req.Counterparty,
		Amount:        req.Amount,
		PaidAt:        req.PaidAt,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.DueDate != nil {
		dueDate, _ := time.Parse("2006-01-02", *req.DueDate)
		in.DueDate = &dueDate
	}
	if req.Status != nil {
		status := models.EntryStatus(*req.Status)
		in.Status = &status
	}

	entry, err := h.svc.UpdateEntry(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, req)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseEntryFilter(r *http.Request) (models.EntryFilter, error) {
	q := r.URL.Query()
	var filter models.EntryFilter
	var fields []models.FieldError

	if v := q.Get("kind"); v != "" {
		kind, err := models.ParseEntryKind(v)
		if err != nil {
			fields = append(fields, models.FieldsOf(err)...)
		}
		filter.Kind = kind
	}
	if v := q.Get("status"); v != "" {
		status, err := models.ParseEntryStatus(v)
		if err != nil {
			fields = append(fields, models.FieldsOf(err)...)
		}
		filter.Status = status
	}
	if v := q.Get("month"); v != "" {
		month, err := parseMonth(v)
		if err != nil {
			fields = append(fields, models.FieldsOf(err)...)
		}
		filter.Month = month
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			fields = append(fields, models.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
		filter.Limit = limit
	}

	if len(fields) > 0 {
		return models.EntryFilter{}, models.NewValidationError("invalid filter", fields...)
	}
	return filter, nil
}
