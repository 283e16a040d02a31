package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dan9191/studio-billing/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Summary returns the revenue rollup of ?month=YYYY-MM, the current month by default
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	month := h.svc.Today()
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := parseMonth(v)
		if err != nil {
			h.writeServiceError(w, r, err, r.URL.Query())
			return
		}
		month = parsed
	}

	summary, err := h.svc.Summary(r.Context(), month)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExportFees exports fees as a spreadsheet (default) or as JSON with ?format=json
func (h *Handler) ExportFees(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFeeFilter(r)
	if err != nil {
		h.writeServiceError(w, r, err, r.URL.Query())
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "json":
		minDays := 0
		if v := r.URL.Query().Get("days_overdue"); v != "" {
			minDays, err = strconv.Atoi(v)
			if err != nil || minDays < 0 {
				h.writeServiceError(w, r, models.NewValidationError("invalid filter",
					models.FieldError{Field: "days_overdue", Error: "must be a non-negative integer"}), r.URL.Query())
				return
			}
		}
		rows, err := h.svc.ExportFees(r.Context(), filter, minDays)
		if err != nil {
			h.writeServiceError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	case "", "xlsx":
		var buf bytes.Buffer
		if err := h.svc.WriteFeesXLSX(r.Context(), &buf, filter); err != nil {
			h.writeServiceError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fees-%s.xlsx"`, h.svc.Today().Format("2006-01-02")))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	default:
		h.writeServiceError(w, r, models.NewValidationError("unsupported format",
			models.FieldError{Field: "format", Error: "must be xlsx or json"}), r.URL.Query())
	}
}
