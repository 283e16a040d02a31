package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/Dan9191/studio-billing/internal/report"
	"github.com/Dan9191/studio-billing/internal/service"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Billing is the part of the service the HTTP layer talks to
type Billing interface {
	Today() time.Time
	Ping(ctx context.Context) error

	HandlePaymentNotification(ctx context.Context, paymentID string) (service.Outcome, error)
	BuildPreference(ctx context.Context, feeID int64) (*models.PaymentIntent, error)
	AuthorizeFee(ctx context.Context, feeID, userID int64) error

	CreateFee(ctx context.Context, in service.CreateFeeInput) (*models.Fee, error)
	GetFee(ctx context.Context, id int64) (*models.Fee, error)
	ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error)
	UpdateFee(ctx context.Context, id int64, in service.UpdateFeeInput) (*models.Fee, error)
	CancelFee(ctx context.Context, id int64) (*models.Fee, error)
	DeleteFee(ctx context.Context, id int64) error
	GenerateBillingCycle(ctx context.Context, month time.Time) (int, error)

	CreateEntry(ctx context.Context, in service.CreateEntryInput) (*models.Entry, error)
	GetEntry(ctx context.Context, id int64) (*models.Entry, error)
	ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	UpdateEntry(ctx context.Context, id int64, in service.UpdateEntryInput) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error

	Summary(ctx context.Context, month time.Time) (report.Summary, error)
	ExportFees(ctx context.Context, filter models.FeeFilter, minDaysOverdue int) ([]report.ExportRow, error)
	WriteFeesXLSX(ctx context.Context, w io.Writer, filter models.FeeFilter) error

	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (*models.Notification, error)
}

type Handler struct {
	svc      Billing
	log      *logrus.Logger
	cfg      *config.Config
	validate *validator.Validate
	trans    ut.Translator
}

func NewHandler(svc Billing, log *logrus.Logger, cfg *config.Config) *Handler {
	validate := validator.New()
	// report JSON names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		log.Warnf("Failed to register validation messages: %v", err)
	}

	return &Handler{svc: svc, log: log, cfg: cfg, validate: validate, trans: trans}
}

// Health reports whether the database is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error     string              `json:"error"`
	Fields    []models.FieldError `json:"fields,omitempty"`
	Submitted any                 `json:"submitted,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode reads a JSON body and validates it. On failure the response is
// already written and false is returned.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{Field: fe.Field(), Error: fe.Translate(h.trans)})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "validation failed",
			Fields:    fields,
			Submitted: dst,
		})
		return false
	}
	return true
}

// writeServiceError maps a classified error to a status code. submitted is
// echoed back on validation failures.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, submitted any) {
	var appErr *models.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch models.KindOf(err) {
	case models.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     message,
			Fields:    models.FieldsOf(err),
			Submitted: submitted,
		})
	case models.KindNotFound:
		writeError(w, http.StatusNotFound, message)
	case models.KindInvalidState:
		writeError(w, http.StatusUnprocessableEntity, message)
	case models.KindConflict:
		writeError(w, http.StatusConflict, message)
	case models.KindTransient:
		h.log.WithError(err).WithField("path", r.URL.Path).Warn("Transient failure")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("invalid id", models.FieldError{Field: "id", Error: "must be a positive integer"})
	}
	return id, nil
}

func parseMonth(value string) (time.Time, error) {
	month, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, models.NewValidationError("invalid month",
			models.FieldError{Field: "month", Error: "must be formatted as YYYY-MM"})
	}
	return month, nil
}

// parseFeeFilter reads status, student_id, month and limit from the query
func parseFeeFilter(r *http.Request) (models.FeeFilter, error) {
	q := r.URL.Query()
	var filter models.FeeFilter
	var fields []models.FieldError

	if v := q.Get("status"); v != "" {
		status, err := models.ParseFeeStatus(v)
		if err != nil {
			fields = append(fields, models.FieldsOf(err)...)
		}
		filter.Status = status
	}
	if v := q.Get("student_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			fields = append(fields, models.FieldError{Field: "student_id", Error: "must be a positive integer"})
		}
		filter.StudentID = id
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
		return models.FeeFilter{}, models.NewValidationError("invalid filter", fields...)
	}
	return filter, nil
}
