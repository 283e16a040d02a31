package report

import (
	"fmt"
	"io"
	"time"

	"github.com/Dan9191/studio-billing/internal/ledger"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Fees"

var exportHeader = []any{
	"Period", "Due Date", "Gross", "Discount", "Final", "Paid At", "Status", "Payment Method", "Notes",
}

// ExportRow is the JSON export shape of a fee
type ExportRow struct {
	ID             int64            `json:"id"`
	StudentID      int64            `json:"student_id"`
	Period         string           `json:"period"`
	AmountGross    decimal.Decimal  `json:"amount_gross"`
	AmountDiscount decimal.Decimal  `json:"amount_discount"`
	AmountFinal    decimal.Decimal  `json:"amount_final"`
	DueDate        string           `json:"due_date"`
	PaidAt         *time.Time       `json:"paid_at"`
	Status         models.FeeStatus `json:"status"`
	PaymentMethod  string           `json:"payment_method"`
	DaysOverdue    int              `json:"days_overdue"`
	Notes          string           `json:"notes"`
}

// ExportRows converts fees to their JSON export shape
func ExportRows(fees []*models.Fee, today time.Time) []ExportRow {
	rows := make([]ExportRow, 0, len(fees))
	for _, fee := range fees {
		rows = append(rows, ExportRow{
			ID:             fee.ID,
			StudentID:      fee.StudentID,
			Period:         fee.PeriodStart.Format("2006-01"),
			AmountGross:    fee.AmountGross,
			AmountDiscount: fee.AmountDiscount,
			AmountFinal:    fee.AmountFinal,
			DueDate:        fee.DueDate.Format("2006-01-02"),
			PaidAt:         fee.PaidAt,
			Status:         fee.Status,
			PaymentMethod:  fee.PaymentMethod,
			DaysOverdue:    ledger.DaysOverdue(*fee, today),
			Notes:          fee.Notes,
		})
	}
	return rows
}

// WriteFeesXLSX writes one row per fee followed by the paid and pending totals
func WriteFeesXLSX(w io.Writer, fees []*models.Fee) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	totals := Rollup(fees, nil, time.Time{})
	row := 2
	for _, fee := range fees {
		paidAt := ""
		if fee.PaidAt != nil {
			paidAt = fee.PaidAt.Format("2006-01-02")
		}
		values := []any{
			fee.PeriodStart.Format("01/2006"),
			fee.DueDate.Format("2006-01-02"),
			fee.AmountGross.InexactFloat64(),
			fee.AmountDiscount.InexactFloat64(),
			fee.AmountFinal.InexactFloat64(),
			paidAt,
			string(fee.Status),
			fee.PaymentMethod,
			fee.Notes,
		}
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}

	if err := setRow(f, row, []any{"Total paid", "", "", "", totals.TotalPaid.InexactFloat64()}); err != nil {
		return err
	}
	if err := setRow(f, row+1, []any{"Total pending", "", "", "", totals.TotalPending.InexactFloat64()}); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetColStyle(sheetName, "C:E", style); err != nil {
		return fmt.Errorf("failed to style columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "I", "I", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
