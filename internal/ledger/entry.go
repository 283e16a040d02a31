package ledger

import (
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
)

// AdvanceEntryIfOverdue marks a pending entry past its due date as overdue
func AdvanceEntryIfOverdue(entry models.Entry, today time.Time) models.Entry {
	if entry.Status == models.EntryStatusPending && entry.DueDate.Before(today) {
		entry.Status = models.EntryStatusOverdue
	}
	return entry
}

// NormalizeEntry validates an entry and re-derives its paid date and its
// overdue status from the due date.
func NormalizeEntry(entry models.Entry, now, today time.Time) (models.Entry, error) {
	if !entry.Kind.Valid() {
		return entry, models.NewValidationError("invalid entry kind",
			models.FieldError{Field: "kind", Error: "must be expense or revenue"})
	}
	if !models.ValidEntryCategory(entry.Kind, entry.Category) {
		return entry, models.NewValidationError("invalid entry category",
			models.FieldError{Field: "category", Error: "unknown category for " + string(entry.Kind)})
	}
	if !entry.Status.Valid() {
		return entry, models.NewValidationError("invalid entry status",
			models.FieldError{Field: "status", Error: "unknown status"})
	}
	if entry.Amount.IsNegative() {
		return entry, models.ErrNegativeAmount
	}

	if entry.Status == models.EntryStatusPaid {
		if entry.PaidAt == nil {
			paidAt := now
			entry.PaidAt = &paidAt
		}
	} else {
		entry.PaidAt = nil
	}
	if entry.Status == models.EntryStatusOverdue {
		entry.Status = models.EntryStatusPending
	}
	return AdvanceEntryIfOverdue(entry, today), nil
}
