package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is the lifecycle state of a monthly fee
type FeeStatus string

const (
	FeeStatusPending   FeeStatus = "pending"
	FeeStatusPaid      FeeStatus = "paid"
	FeeStatusOverdue   FeeStatus = "overdue"
	FeeStatusCancelled FeeStatus = "cancelled"
)

// Valid reports whether s is one of the known fee statuses
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusPending, FeeStatusPaid, FeeStatusOverdue, FeeStatusCancelled:
		return true
	}
	return false
}

// Outstanding reports whether the fee still expects a payment
func (s FeeStatus) Outstanding() bool {
	return s == FeeStatusPending || s == FeeStatusOverdue
}

// ParseFeeStatus parses a status name case-insensitively
func ParseFeeStatus(s string) (FeeStatus, error) {
	status := FeeStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown fee status %q", s),
			FieldError{Field: "status", Error: "must be one of pending, paid, overdue, cancelled"})
	}
	return status, nil
}

// Fee is the monthly fee of one student for one billing period
type Fee struct {
	ID             int64           `json:"id"`
	StudentID      int64           `json:"student_id"`
	PeriodStart    time.Time       `json:"period_start"` // first day of the reference month
	AmountGross    decimal.Decimal `json:"amount_gross"`
	AmountDiscount decimal.Decimal `json:"amount_discount"`
	AmountFinal    decimal.Decimal `json:"amount_final"`
	DueDate        time.Time       `json:"due_date"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Status         FeeStatus       `json:"status"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ExternalReference returns the processor-side reference of the fee
func (f *Fee) ExternalReference() string {
	return ExternalReference(f.ID)
}

// FeeFilter narrows fee listings. Zero values mean "no filter".
type FeeFilter struct {
	Status    FeeStatus
	StudentID int64
	Month     time.Time // any instant inside the month; zero for all months
	Limit     int

	// AsOf makes pending and overdue match by due date as of that day,
	// so unswept past-due fees count as overdue.
	AsOf time.Time
}

const externalReferencePrefix = "FEE-"

// ExternalReference derives the stable reference sent to the payment processor
func ExternalReference(feeID int64) string {
	return externalReferencePrefix + strconv.FormatInt(feeID, 10)
}

// ParseExternalReference is the inverse of ExternalReference
func ParseExternalReference(ref string) (int64, error) {
	if !strings.HasPrefix(ref, externalReferencePrefix) {
		return 0, fmt.Errorf("invalid external reference %q", ref)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(ref, externalReferencePrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid external reference %q", ref)
	}
	return id, nil
}

// MonthStart truncates t to the first day of its month, in UTC
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
