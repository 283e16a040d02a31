// Package report aggregates fees and administrative entries for the
// financial summary and renders the spreadsheet export.
package report

import (
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
)

// Summary is the monthly financial result: fee revenue, other revenue,
// administrative expenses and the net of what was actually received and spent.
type Summary struct {
	Month         string          `json:"month,omitempty"`
	Count         int             `json:"count"`
	TotalGross    decimal.Decimal `json:"total_gross"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalFinal    decimal.Decimal `json:"total_final"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalPending  decimal.Decimal `json:"total_pending"` // pending and overdue
	TotalOverdue  decimal.Decimal `json:"total_overdue"`

	OtherRevenue         decimal.Decimal `json:"other_revenue"`
	OtherRevenueReceived decimal.Decimal `json:"other_revenue_received"`
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	ExpensesPaid         decimal.Decimal `json:"expenses_paid"`
	ExpensesPending      decimal.Decimal `json:"expenses_pending"` // pending and overdue

	TotalReceived   decimal.Decimal `json:"total_received"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	NetResult       decimal.Decimal `json:"net_result"` // received minus expenses paid
}

// Rollup sums the fees and entries of the given month. A zero month sums
// everything. Fees belong to their period, entries to the month of their
// due date. Cancelled records are left out of every total.
func Rollup(fees []*models.Fee, entries []*models.Entry, month time.Time) Summary {
	s := Summary{
		TotalGross:           decimal.Zero,
		TotalDiscount:        decimal.Zero,
		TotalFinal:           decimal.Zero,
		TotalPaid:            decimal.Zero,
		TotalPending:         decimal.Zero,
		TotalOverdue:         decimal.Zero,
		OtherRevenue:         decimal.Zero,
		OtherRevenueReceived: decimal.Zero,
		TotalExpenses:        decimal.Zero,
		ExpensesPaid:         decimal.Zero,
		ExpensesPending:      decimal.Zero,
	}
	var start time.Time
	if !month.IsZero() {
		start = models.MonthStart(month)
		s.Month = start.Format("2006-01")
	}

	for _, fee := range fees {
		if !start.IsZero() && !models.MonthStart(fee.PeriodStart).Equal(start) {
			continue
		}
		if fee.Status == models.FeeStatusCancelled {
			continue
		}

		s.Count++
		s.TotalGross = s.TotalGross.Add(fee.AmountGross)
		s.TotalDiscount = s.TotalDiscount.Add(fee.AmountDiscount)
		s.TotalFinal = s.TotalFinal.Add(fee.AmountFinal)

		switch fee.Status {
		case models.FeeStatusPaid:
			s.TotalPaid = s.TotalPaid.Add(fee.AmountFinal)
		case models.FeeStatusOverdue:
			s.TotalOverdue = s.TotalOverdue.Add(fee.AmountFinal)
			s.TotalPending = s.TotalPending.Add(fee.AmountFinal)
		case models.FeeStatusPending:
			s.TotalPending = s.TotalPending.Add(fee.AmountFinal)
		}
	}

	revenuePending := decimal.Zero
	for _, e := range entries {
		if !start.IsZero() && !models.MonthStart(e.DueDate).Equal(start) {
			continue
		}
		if e.Status == models.EntryStatusCancelled {
			continue
		}

		paid := e.Status == models.EntryStatusPaid
		switch e.Kind {
		case models.EntryKindExpense:
			s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
			if paid {
				s.ExpensesPaid = s.ExpensesPaid.Add(e.Amount)
			} else {
				s.ExpensesPending = s.ExpensesPending.Add(e.Amount)
			}
		case models.EntryKindRevenue:
			s.OtherRevenue = s.OtherRevenue.Add(e.Amount)
			if paid {
				s.OtherRevenueReceived = s.OtherRevenueReceived.Add(e.Amount)
			} else {
				revenuePending = revenuePending.Add(e.Amount)
			}
		}
	}

	s.TotalReceived = s.TotalPaid.Add(s.OtherRevenueReceived)
	s.TotalReceivable = s.TotalPending.Add(revenuePending)
	s.NetResult = s.TotalReceived.Sub(s.ExpensesPaid)
	return s
}
