package service

import (
	"context"
	"io"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/Dan9191/studio-billing/internal/report"
)

// Summary returns the financial result of a month: fee revenue, other
// revenue and administrative expenses
func (s *Service) Summary(ctx context.Context, month time.Time) (report.Summary, error) {
	fees, err := s.ListFees(ctx, models.FeeFilter{Month: month})
	if err != nil {
		return report.Summary{}, err
	}
	entries, err := s.ListEntries(ctx, models.EntryFilter{Month: month})
	if err != nil {
		return report.Summary{}, err
	}
	return report.Rollup(fees, entries, month), nil
}

// ExportFees returns the fees matching filter in their export shape.
// A positive minDaysOverdue keeps only fees at least that late.
func (s *Service) ExportFees(ctx context.Context, filter models.FeeFilter, minDaysOverdue int) ([]report.ExportRow, error) {
	fees, err := s.ListFees(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := report.ExportRows(fees, s.Today())
	if minDaysOverdue <= 0 {
		return rows, nil
	}
	filtered := rows[:0]
	for _, row := range rows {
		if row.DaysOverdue >= minDaysOverdue {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// WriteFeesXLSX writes the spreadsheet export of the fees matching filter
func (s *Service) WriteFeesXLSX(ctx context.Context, w io.Writer, filter models.FeeFilter) error {
	fees, err := s.ListFees(ctx, filter)
	if err != nil {
		return err
	}
	return report.WriteFeesXLSX(w, fees)
}
