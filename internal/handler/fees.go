package handler

import (
	"net/http"
	"time"

	"github.com/Dan9191/studio-billing/internal/middleware"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/Dan9191/studio-billing/internal/service"
	"github.com/shopspring/decimal"
)

type createFeeRequest struct {
	StudentID      int64            `json:"student_id" validate:"required,gt=0"`
	Period         string           `json:"period" validate:"required,datetime=2006-01"`
	AmountGross    *decimal.Decimal `json:"amount_gross" validate:"required"`
	AmountDiscount *decimal.Decimal `json:"amount_discount,omitempty"`
	DueDate        string           `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status         string           `json:"status,omitempty" validate:"omitempty,oneof=pending paid overdue cancelled"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty" validate:"max=50"`
	Notes          string           `json:"notes,omitempty" validate:"max=2000"`
}

type updateFeeRequest struct {
	AmountGross    *decimal.Decimal `json:"amount_gross,omitempty"`
	AmountDiscount *decimal.Decimal `json:"amount_discount,omitempty"`
	DueDate        *string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status         *string          `json:"status,omitempty" validate:"omitempty,oneof=pending paid overdue cancelled"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	PaymentMethod  *string          `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	Notes          *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// CreatePreference starts a checkout for a fee. Students can only pay their own fees.
func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	if middleware.Role(r.Context()) != middleware.RoleAdmin {
		if err := h.svc.AuthorizeFee(r.Context(), id, middleware.UserID(r.Context())); err != nil {
			h.writeServiceError(w, r, err, nil)
			return
		}
	}

	intent, err := h.svc.BuildPreference(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// ListFees lists fees, filtered by status, student_id and month
func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFeeFilter(r)
	if err != nil {
		h.writeServiceError(w, r, err, r.URL.Query())
		return
	}
	fees, err := h.svc.ListFees(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

func (h *Handler) CreateFee(w http.ResponseWriter, r *http.Request) {
	var req createFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	period, _ := time.Parse("2006-01", req.Period)
	in := service.CreateFeeInput{
		StudentID:      req.StudentID,
		Period:         period,
		AmountGross:    *req.AmountGross,
		AmountDiscount: decimal.Zero,
		Status:         models.FeeStatus(req.Status),
		PaidAt:         req.PaidAt,
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
	}
	if req.AmountDiscount != nil {
		in.AmountDiscount = *req.AmountDiscount
	}
	if req.DueDate != "" {
		dueDate, _ := time.Parse("2006-01-02", req.DueDate)
		in.DueDate = &dueDate
	}

	fee, err := h.svc.CreateFee(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, req)
		return
	}
	writeJSON(w, http.StatusCreated, fee)
}

func (h *Handler) GetFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	fee, err := h.svc.GetFee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

// UpdateFee applies a partial edit; omitted fields keep their value
func (h *Handler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	var req updateFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := service.UpdateFeeInput{
		AmountGross:    req.AmountGross,
		AmountDiscount: req.AmountDiscount,
		PaidAt:         req.PaidAt,
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
	}
	if req.DueDate != nil {
		dueDate, _ := time.Parse("2006-01-02", *req.DueDate)
		in.DueDate = &dueDate
	}
	if req.Status != nil {
		status := models.FeeStatus(*req.Status)
		in.Status = &status
	}

	fee, err := h.svc.UpdateFee(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, req)
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

func (h *Handler) CancelFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	fee, err := h.svc.CancelFee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

func (h *Handler) DeleteFee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	if err := h.svc.DeleteFee(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type billingCycleRequest struct {
	Month string `json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
}

// GenerateBillingCycle creates the fees of a month, the current one by default
func (h *Handler) GenerateBillingCycle(w http.ResponseWriter, r *http.Request) {
	var req billingCycleRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	month := h.svc.Today()
	if req.Month != "" {
		month, _ = time.Parse("2006-01", req.Month)
	}
	created, err := h.svc.GenerateBillingCycle(r.Context(), month)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":   models.MonthStart(month).Format("2006-01"),
		"created": created,
	})
}
