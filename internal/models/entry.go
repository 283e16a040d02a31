package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind separates money going out from money coming in outside fees
type EntryKind string

const (
	EntryKindExpense EntryKind = "expense"
	EntryKindRevenue EntryKind = "revenue"
)

// Valid reports whether k is a known entry kind
func (k EntryKind) Valid() bool {
	return k == EntryKindExpense || k == EntryKindRevenue
}

// EntryStatus follows the same lifecycle as a fee
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusPaid      EntryStatus = "paid"
	EntryStatusOverdue   EntryStatus = "overdue"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// Valid reports whether s is a known entry status
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusPending, EntryStatusPaid, EntryStatusOverdue, EntryStatusCancelled:
		return true
	}
	return false
}

// Outstanding reports whether the entry is still to be settled
func (s EntryStatus) Outstanding() bool {
	return s == EntryStatusPending || s == EntryStatusOverdue
}

var entryCategories = map[EntryKind][]string{
	EntryKindExpense: {
		"rent", "electricity", "water", "internet", "salary", "equipment", "maintenance",
		"cleaning", "supplies", "marketing", "taxes", "insurance", "transport", "food",
		"event", "software", "legal", "other",
	},
	EntryKindRevenue: {
		"tickets", "sponsorship", "donation", "workshop", "space_rental", "performance",
		"merchandise", "consulting", "other",
	},
}

// EntryCategories lists the categories accepted for a kind
func EntryCategories(kind EntryKind) []string {
	return entryCategories[kind]
}

// ValidEntryCategory reports whether category belongs to kind
func ValidEntryCategory(kind EntryKind, category string) bool {
	for _, c := range entryCategories[kind] {
		if c == category {
			return true
		}
	}
	return false
}

// Entry is an administrative expense or an income that is not a student fee
type Entry struct {
	ID            int64           `json:"id"`
	Kind          EntryKind       `json:"kind"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Counterparty  string          `json:"counterparty"` // supplier or payer
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	PaidAt        *time.Time      `json:"paid_at"`
	Status        EntryStatus     `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EntryFilter narrows entry listings. Month matches the due date.
type EntryFilter struct {
	Kind   EntryKind
	Status EntryStatus
	Month  time.Time
	Limit  int
}

// ParseEntryKind parses a kind name case-insensitively
func ParseEntryKind(s string) (EntryKind, error) {
	kind := EntryKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown entry kind %q", s),
			FieldError{Field: "kind", Error: "must be expense or revenue"})
	}
	return kind, nil
}

// ParseEntryStatus parses a status name case-insensitively
func ParseEntryStatus(s string) (EntryStatus, error) {
	status := EntryStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown entry status %q", s),
			FieldError{Field: "status", Error: "must be one of pending, paid, overdue, cancelled"})
	}
	return status, nil
}
