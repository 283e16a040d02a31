// Package ledger holds the pure rules of the fee ledger. Every write path
// calls Normalize before persisting and every read path calls
// AdvanceIfOverdue before handing a fee to a consumer.
package ledger

import (
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
)

// ComputeFinal returns gross minus discount
func ComputeFinal(gross, discount decimal.Decimal) (decimal.Decimal, error) {
	var fields []models.FieldError
	if gross.IsNegative() {
		fields = append(fields, models.FieldError{Field: "amount_gross", Error: "must not be negative"})
	}
	if discount.IsNegative() {
		fields = append(fields, models.FieldError{Field: "amount_discount", Error: "must not be negative"})
	}
	if len(fields) > 0 {
		return decimal.Zero, models.NewValidationError("amounts must not be negative", fields...)
	}
	if discount.GreaterThan(gross) {
		return decimal.Zero, models.ErrInvalidDiscount
	}
	return gross.Sub(discount), nil
}

// AdvanceIfOverdue returns the fee unchanged unless it is pending and past
// due, in which case it returns a copy marked overdue.
func AdvanceIfOverdue(fee models.Fee, today time.Time) models.Fee {
	if fee.Status == models.FeeStatusPending && fee.DueDate.Before(today) {
		fee.Status = models.FeeStatusOverdue
	}
	return fee
}

// Normalize recomputes derived fields and enforces the fee invariants.
// now is the wall-clock instant used for a missing paid date.
func Normalize(fee models.Fee, now, today time.Time) (models.Fee, error) {
	if !fee.Status.Valid() {
		return fee, models.NewValidationError("invalid fee status",
			models.FieldError{Field: "status", Error: "unknown status"})
	}
	final, err := ComputeFinal(fee.AmountGross, fee.AmountDiscount)
	if err != nil {
		return fee, err
	}
	fee.AmountFinal = final

	if fee.Status == models.FeeStatusPaid {
		if fee.PaidAt == nil {
			paidAt := now
			fee.PaidAt = &paidAt
		}
	} else {
		fee.PaidAt = nil
	}
	return AdvanceIfOverdue(fee, today), nil
}

// DaysOverdue returns how many days an outstanding fee is past its due date
func DaysOverdue(fee models.Fee, today time.Time) int {
	if !fee.Status.Outstanding() || !fee.DueDate.Before(today) {
		return 0
	}
	return int(today.Sub(fee.DueDate).Hours() / 24)
}

// Today returns the calendar date of now in loc, as midnight UTC.
// Due dates are stored as dates, so comparisons happen on this scale.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueDateFor returns the due date of a period given the configured due day,
// clamped to the last day of the month.
func DueDateFor(period time.Time, dueDay int) time.Time {
	start := models.MonthStart(period)
	last := start.AddDate(0, 1, -1).Day()
	if dueDay < 1 {
		dueDay = 1
	}
	if dueDay > last {
		dueDay = last
	}
	return start.AddDate(0, 0, dueDay-1)
}
