package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExternalStatus is the payment status reported by the processor
type ExternalStatus string

const (
	ExternalStatusApproved    ExternalStatus = "approved"
	ExternalStatusPending     ExternalStatus = "pending"
	ExternalStatusInProcess   ExternalStatus = "in_process"
	ExternalStatusAuthorized  ExternalStatus = "authorized"
	ExternalStatusRejected    ExternalStatus = "rejected"
	ExternalStatusCancelled   ExternalStatus = "cancelled"
	ExternalStatusRefunded    ExternalStatus = "refunded"
	ExternalStatusChargedBack ExternalStatus = "charged_back"
)

// PaymentIntent is the result of creating a checkout preference for a fee.
// It is not persisted; the processor keeps its own record.
type PaymentIntent struct {
	FeeID                int64           `json:"fee_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Description          string          `json:"description"`
	ExternalReference    string          `json:"external_reference"`
	ExternalPreferenceID string          `json:"external_preference_id"`
	CheckoutURL          string          `json:"checkout_url,omitempty"`
	PublicKey            string          `json:"public_key"`
}

// PaymentEvent is the processor's view of a payment, fetched after a webhook
type PaymentEvent struct {
	ExternalPaymentID string          `json:"external_payment_id"`
	Status            ExternalStatus  `json:"status"`
	StatusDetail      string          `json:"status_detail,omitempty"`
	FeeID             string          `json:"fee_id,omitempty"` // metadata.fee_id
	ExternalReference string          `json:"external_reference,omitempty"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
}

// WebhookNotification is the inbound webhook body
type WebhookNotification struct {
	ID     FlexibleID `json:"id,omitempty"`
	Type   string     `json:"type"`
	Action string     `json:"action,omitempty"`
	Data   struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
}

// FlexibleID accepts both JSON strings and numbers
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}
