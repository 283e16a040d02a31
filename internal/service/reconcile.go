package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/sirupsen/logrus"
)

// Outcome is what reconciling a payment event did to its fee
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeAlreadyPaid   Outcome = "already_paid"
	OutcomePendingNoted  Outcome = "pending_noted"
	OutcomeRejectedNoted Outcome = "rejected_noted"
	OutcomeNeedsReview   Outcome = "needs_review"
	OutcomeIgnored       Outcome = "ignored"
)

const (
	notePaymentPending  = "payment pending"
	notePaymentRejected = "payment rejected"
)

// HandlePaymentNotification fetches a payment from the processor and
// reconciles it against its fee
func (s *Service) HandlePaymentNotification(ctx context.Context, paymentID string) (Outcome, error) {
	if s.gateway == nil {
		return OutcomeIgnored, models.ErrNoGateway
	}
	event, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.metrics.ObserveReconcile("error")
		return OutcomeIgnored, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	return s.Reconcile(ctx, event)
}

// Reconcile applies a payment event to the fee it references. An approval
// moves an outstanding fee to paid at most once, however many times the
// event is delivered.
func (s *Service) Reconcile(ctx context.Context, event *models.PaymentEvent) (Outcome, error) {
	outcome, err := s.reconcile(ctx, event)
	if err != nil {
		s.metrics.ObserveReconcile("error")
		return outcome, err
	}
	s.metrics.ObserveReconcile(string(outcome))
	return outcome, nil
}

func (s *Service) reconcile(ctx context.Context, event *models.PaymentEvent) (Outcome, error) {
	logger := s.log.WithFields(logrus.Fields{
		"payment_id":         event.ExternalPaymentID,
		"payment_status":     event.Status,
		"fee_ref":            event.FeeID,
		"external_reference": event.ExternalReference,
	})

	feeID, ok := resolveFeeID(event)
	if !ok {
		logger.Warn("Payment does not reference a fee")
		return OutcomeIgnored, models.ErrFeeNotFound
	}
	logger = logger.WithField("fee_id", feeID)

	fee, err := s.store.GetFee(ctx, feeID)
	if err != nil {
		return OutcomeIgnored, err
	}

	switch event.Status {
	case models.ExternalStatusApproved:
		return s.applyApproval(ctx, logger, fee, event)
	case models.ExternalStatusPending, models.ExternalStatusInProcess, models.ExternalStatusAuthorized:
		if err := s.store.SetNotes(ctx, fee.ID, notePaymentPending); err != nil {
			return OutcomeIgnored, err
		}
		logger.Info("Payment pending at processor")
		return OutcomePendingNoted, nil
	case models.ExternalStatusRejected:
		if fee.Status == models.FeeStatusPaid {
			return OutcomeIgnored, nil
		}
		if err := s.store.SetNotesIfUnpaid(ctx, fee.ID, notePaymentRejected); err != nil {
			return OutcomeIgnored, err
		}
		logger.Info("Payment rejected at processor")
		return OutcomeRejectedNoted, nil
	case models.ExternalStatusCancelled, models.ExternalStatusRefunded, models.ExternalStatusChargedBack:
		logger.Info("Payment status needs no fee transition")
		return OutcomeIgnored, nil
	default:
		logger.Warn("Unknown payment status")
		return OutcomeIgnored, nil
	}
}

func (s *Service) applyApproval(ctx context.Context, logger *logrus.Entry, fee *models.Fee, event *models.PaymentEvent) (Outcome, error) {
	switch fee.Status {
	case models.FeeStatusPaid:
		return OutcomeAlreadyPaid, nil
	case models.FeeStatusCancelled:
		return s.noteApprovedCancelled(ctx, logger, fee.ID, event)
	}

	if !event.Amount.IsZero() && !event.Amount.Equal(fee.AmountFinal) {
		logger.WithFields(logrus.Fields{
			"charged":  event.Amount.String(),
			"expected": fee.AmountFinal.String(),
		}).Warn("Approved amount differs from fee amount")
	}

	paidAt := s.now()
	applied, err := s.store.MarkPaid(ctx, fee.ID, paidAt, event.PaymentMethod)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !applied {
		// lost the compare-and-set, find out to what
		current, err := s.store.GetFee(ctx, fee.ID)
		if err != nil {
			return OutcomeIgnored, err
		}
		switch current.Status {
		case models.FeeStatusPaid:
			return OutcomeAlreadyPaid, nil
		case models.FeeStatusCancelled:
			return s.noteApprovedCancelled(ctx, logger, fee.ID, event)
		default:
			return OutcomeIgnored, models.NewTransientError(
				fmt.Sprintf("fee %d changed while applying payment", fee.ID), nil)
		}
	}

	logger.Info("Payment approved, fee marked paid")
	s.notifyApproved(ctx, logger, fee, paidAt)
	return OutcomeApplied, nil
}

func (s *Service) noteApprovedCancelled(ctx context.Context, logger *logrus.Entry, feeID int64, event *models.PaymentEvent) (Outcome, error) {
	note := fmt.Sprintf("payment %s approved for a cancelled fee", event.ExternalPaymentID)
	if err := s.store.SetNotes(ctx, feeID, note); err != nil {
		return OutcomeIgnored, err
	}
	logger.Warn("Approved payment for a cancelled fee needs manual reconciliation")
	return OutcomeNeedsReview, nil
}

func (s *Service) notifyApproved(ctx context.Context, logger *logrus.Entry, fee *models.Fee, paidAt time.Time) {
	student, err := s.store.GetStudent(ctx, fee.StudentID)
	if err != nil {
		logger.WithError(err).Warn("Paid fee without a reachable student, notification skipped")
		return
	}

	s.Notify(ctx, student.UserID, models.NotificationPaymentApproved,
		"Payment approved",
		fmt.Sprintf("Your payment of %s %s for %s was approved.",
			s.config.Currency, fee.AmountFinal.StringFixed(2), fee.PeriodStart.Format("01/2006")),
		s.feeLink(fee.ID))

	if student.Email != "" {
		f := *fee
		s.sendMail("payment_approved", func(m Mailer) error {
			return m.SendPaymentConfirmation(student.Email, student.Name, f.PeriodStart, f.AmountFinal, paidAt)
		})
	}
}

// resolveFeeID reads the fee id from the payment metadata, falling back to
// the external reference
func resolveFeeID(event *models.PaymentEvent) (int64, bool) {
	if event.FeeID != "" {
		if id, err := strconv.ParseInt(event.FeeID, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	if event.ExternalReference != "" {
		if id, err := models.ParseExternalReference(event.ExternalReference); err == nil {
			return id, true
		}
	}
	return 0, false
}
