package models

import "github.com/shopspring/decimal"

// Student holds the billing-relevant view of an enrolled student
type Student struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	MonthlyDiscount decimal.Decimal `json:"monthly_discount"`
	Active          bool            `json:"active"`
}
