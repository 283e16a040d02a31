package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/studio-billing/internal/ledger"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
)

// CreateFeeInput describes a fee entered by an administrator
type CreateFeeInput struct {
	StudentID      int64
	Period         time.Time
	AmountGross    decimal.Decimal
	AmountDiscount decimal.Decimal
	DueDate        *time.Time // defaults to the configured due day of the period
	Status         models.FeeStatus
	PaidAt         *time.Time
	PaymentMethod  string
	Notes          string
}

// UpdateFeeInput holds a partial fee edit; nil fields are left unchanged
type UpdateFeeInput struct {
	AmountGross    *decimal.Decimal
	AmountDiscount *decimal.Decimal
	DueDate        *time.Time
	Status         *models.FeeStatus
	PaidAt         *time.Time
	PaymentMethod  *string
	Notes          *string
}

// CreateFee creates a fee for a student and period
func (s *Service) CreateFee(ctx context.Context, in CreateFeeInput) (*models.Fee, error) {
	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		return nil, err
	}

	period := models.MonthStart(in.Period)
	dueDate := ledger.DueDateFor(period, s.config.BillingDueDay)
	if in.DueDate != nil {
		dueDate = dateOnly(*in.DueDate)
	}
	status := in.Status
	if status == "" || status == models.FeeStatusOverdue {
		// overdue is derived from the due date
		status = models.FeeStatusPending
	}

	fee, err := s.normalize(models.Fee{
		StudentID:      in.StudentID,
		PeriodStart:    period,
		AmountGross:    in.AmountGross,
		AmountDiscount: in.AmountDiscount,
		DueDate:        dueDate,
		PaidAt:         in.PaidAt,
		Status:         status,
		PaymentMethod:  in.PaymentMethod,
		Notes:          in.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateFee(ctx, &fee); err != nil {
		return nil, err
	}
	s.log.Infof("Fee %d created for student %d, period %s", fee.ID, fee.StudentID, period.Format("2006-01"))
	return &fee, nil
}

// GetFee returns a fee as every consumer must see it
func (s *Service) GetFee(ctx context.Context, id int64) (*models.Fee, error) {
	fee, err := s.store.GetFee(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(fee, s.Today()), nil
}

// AuthorizeFee checks that a fee belongs to a student of the user. Fees of
// other users are reported as missing.
func (s *Service) AuthorizeFee(ctx context.Context, feeID, userID int64) error {
	fee, err := s.store.GetFee(ctx, feeID)
	if err != nil {
		return err
	}
	student, err := s.store.GetStudent(ctx, fee.StudentID)
	if errors.Is(err, models.ErrStudentNotFound) {
		return models.ErrFeeNotFound
	}
	if err != nil {
		return err
	}
	if student.UserID != userID {
		return models.ErrFeeNotFound
	}
	return nil
}

// ListFees lists fees. Filtering by overdue also matches pending fees that
// are past due but not yet swept.
func (s *Service) ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	today := s.Today()
	storeFilter := filter
	storeFilter.AsOf = today
	fees, err := s.store.ListFees(ctx, storeFilter)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Fee, 0, len(fees))
	for _, fee := range fees {
		fee = s.present(fee, today)
		if filter.Status != "" && fee.Status != filter.Status {
			continue
		}
		result = append(result, fee)
	}
	return result, nil
}

// UpdateFee applies an administrator edit. The final amount and the paid
// date are re-derived, and a paid fee keeps its paid status.
func (s *Service) UpdateFee(ctx context.Context, id int64, in UpdateFeeInput) (*models.Fee, error) {
	current, err := s.store.GetFee(ctx, id)
	if err != nil {
		return nil, err
	}

	fee := *current
	if in.AmountGross != nil {
		fee.AmountGross = *in.AmountGross
	}
	if in.AmountDiscount != nil {
		fee.AmountDiscount = *in.AmountDiscount
	}
	if in.DueDate != nil {
		fee.DueDate = dateOnly(*in.DueDate)
		if fee.Status == models.FeeStatusOverdue {
			// re-derived from the new due date by normalize
			fee.Status = models.FeeStatusPending
		}
	}
	if in.Status != nil {
		fee.Status = *in.Status
		if fee.Status == models.FeeStatusOverdue {
			// overdue is derived from the due date
			fee.Status = models.FeeStatusPending
		}
	}
	if in.PaidAt != nil {
		fee.PaidAt = in.PaidAt
	}
	if in.PaymentMethod != nil {
		fee.PaymentMethod = *in.PaymentMethod
	}
	if in.Notes != nil {
		fee.Notes = *in.Notes
	}
	if current.Status == models.FeeStatusPaid && fee.Status != models.FeeStatusPaid {
		return nil, models.ErrPaidFeeImmutable
	}

	fee, err = s.normalize(fee)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateFee(ctx, &fee); err != nil {
		return nil, err
	}
	s.log.Infof("Fee %d updated, status %s", fee.ID, fee.Status)
	return &fee, nil
}

// CancelFee cancels an outstanding fee
func (s *Service) CancelFee(ctx context.Context, id int64) (*models.Fee, error) {
	current, err := s.store.GetFee(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.FeeStatusCancelled:
		return s.present(current, s.Today()), nil
	case models.FeeStatusPaid:
		return nil, models.ErrPaidFeeImmutable
	}
	status := models.FeeStatusCancelled
	return s.UpdateFee(ctx, id, UpdateFeeInput{Status: &status})
}

// DeleteFee removes a fee for good
func (s *Service) DeleteFee(ctx context.Context, id int64) error {
	if err := s.store.DeleteFee(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Fee %d deleted", id)
	return nil
}

// GenerateBillingCycle creates the pending fee of the month for every active
// student who has none yet and returns how many fees were created
func (s *Service) GenerateBillingCycle(ctx context.Context, month time.Time) (int, error) {
	students, err := s.store.ListActiveStudents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list students: %w", err)
	}

	period := models.MonthStart(month)
	dueDate := ledger.DueDateFor(period, s.config.BillingDueDay)
	created := 0
	for _, student := range students {
		if !student.MonthlyFee.IsPositive() {
			continue
		}
		fee, err := s.normalize(models.Fee{
			StudentID:      student.ID,
			PeriodStart:    period,
			AmountGross:    student.MonthlyFee,
			AmountDiscount: student.MonthlyDiscount,
			DueDate:        dueDate,
			Status:         models.FeeStatusPending,
		})
		if err != nil {
			if models.KindOf(err) == models.KindValidation {
				s.log.WithError(err).WithField("student_id", student.ID).Warn("Skipping student with invalid fee setup")
				continue
			}
			return created, err
		}

		ok, err := s.store.CreateFeeIfAbsent(ctx, &fee)
		if err != nil {
			return created, fmt.Errorf("failed to create fee for student %d: %w", student.ID, err)
		}
		if ok {
			created++
		}
	}

	s.metrics.ObserveGenerated(created)
	s.log.Infof("Billing cycle %s: %d fees created for %d active students",
		period.Format("2006-01"), created, len(students))
	return created, nil
}

func (s *Service) normalize(fee models.Fee) (models.Fee, error) {
	return ledger.Normalize(fee, s.now(), s.Today())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
