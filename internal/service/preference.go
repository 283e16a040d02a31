package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/studio-billing/internal/integrations/mercadopago"
	"github.com/Dan9191/studio-billing/internal/models"
)

// BuildPreference creates a checkout preference at the payment processor for
// a pending fee. Fees in any other state, overdue included, are refused.
func (s *Service) BuildPreference(ctx context.Context, feeID int64) (*models.PaymentIntent, error) {
	fee, err := s.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, models.ErrNoGateway
	}
	if fee.Status != models.FeeStatusPending {
		return nil, fmt.Errorf("fee %d is %s: %w", fee.ID, fee.Status, models.ErrInvalidFeeState)
	}

	req := mercadopago.PreferenceRequest{
		Description:       fmt.Sprintf("Monthly fee %s", fee.PeriodStart.Format("01/2006")),
		Amount:            fee.AmountFinal,
		Currency:          s.config.Currency,
		FeeID:             fee.ID,
		ExternalReference: fee.ExternalReference(),
	}
	pref, err := s.gateway.CreatePreference(ctx, req)
	s.metrics.ObservePreference(err)
	if err != nil {
		s.log.WithError(err).WithField("fee_id", fee.ID).Error("Failed to create payment preference")
		return nil, fmt.Errorf("failed to create payment preference: %w", err)
	}

	checkoutURL := pref.InitPoint
	if strings.HasPrefix(s.config.MPAccessToken, "TEST-") && pref.SandboxInitPoint != "" {
		checkoutURL = pref.SandboxInitPoint
	}

	s.log.Infof("Payment preference %s created for fee %d", pref.ID, fee.ID)
	return &models.PaymentIntent{
		FeeID:                fee.ID,
		Amount:               fee.AmountFinal,
		Currency:             s.config.Currency,
		Description:          req.Description,
		ExternalReference:    req.ExternalReference,
		ExternalPreferenceID: pref.ID,
		CheckoutURL:          checkoutURL,
		PublicKey:            s.config.MPPublicKey,
	}, nil
}
