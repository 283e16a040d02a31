package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/studio-billing/internal/ledger"
	"github.com/Dan9191/studio-billing/internal/models"
)

// Sweep moves every pending fee that is past due on today to overdue and
// returns how many fees changed. Running it again for the same day changes
// nothing; paid fees are never touched.
func (s *Service) Sweep(ctx context.Context, today time.Time) (int, error) {
	candidates, err := s.store.ListPendingDue(ctx, today)
	if err != nil {
		s.metrics.ObserveSweep(0, err)
		return 0, fmt.Errorf("failed to list pending fees: %w", err)
	}

	ids := make([]int64, 0, len(candidates))
	for _, fee := range candidates {
		if ledger.AdvanceIfOverdue(*fee, today).Status == models.FeeStatusOverdue {
			ids = append(ids, fee.ID)
		}
	}

	transitioned, err := s.store.MarkOverdue(ctx, ids)
	s.metrics.ObserveSweep(len(transitioned), err)
	if err != nil {
		return 0, fmt.Errorf("failed to mark fees overdue: %w", err)
	}

	for _, fee := range transitioned {
		s.notifyOverdue(ctx, fee, today)
	}

	s.log.Infof("Overdue sweep for %s: %d of %d candidates transitioned",
		today.Format("2006-01-02"), len(transitioned), len(candidates))
	return len(transitioned), nil
}

func (s *Service) notifyOverdue(ctx context.Context, fee *models.Fee, today time.Time) {
	student, err := s.store.GetStudent(ctx, fee.StudentID)
	if err != nil {
		s.log.WithError(err).WithField("fee_id", fee.ID).Warn("Overdue fee without a reachable student")
		return
	}

	days := ledger.DaysOverdue(*fee, today)
	s.Notify(ctx, student.UserID, models.NotificationFeeOverdue,
		"Monthly fee overdue",
		fmt.Sprintf("Your fee for %s (%s %s) is %d day(s) overdue.",
			fee.PeriodStart.Format("01/2006"), s.config.Currency, fee.AmountFinal.StringFixed(2), days),
		s.feeLink(fee.ID))

	if student.Email != "" {
		f := *fee
		s.sendMail("overdue", func(m Mailer) error {
			return m.SendOverdueNotice(student.Email, student.Name, f.PeriodStart, f.DueDate, f.AmountFinal)
		})
	}
}

func (s *Service) feeLink(feeID int64) string {
	return fmt.Sprintf("%s/fees/%d", s.config.AppBaseURL, feeID)
}
