package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client talks to the Mercado Pago REST API
type Client struct {
	baseURL         string
	accessToken     string
	notificationURL string
	client          *http.Client
	log             *logrus.Logger
}

// NewClient initializes a new Mercado Pago client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:         strings.TrimRight(cfg.MPBaseURL, "/"),
		accessToken:     cfg.MPAccessToken,
		notificationURL: cfg.NotificationURL,
		client: &http.Client{
			Timeout: cfg.MPTimeout,
		},
		log: log,
	}
}

// PreferenceRequest is what the billing service asks the processor to create
type PreferenceRequest struct {
	Description       string
	Amount            decimal.Decimal
	Currency          string
	FeeID             int64
	ExternalReference string
}

// Preference is the processor's answer to a preference creation
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type preferenceBody struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Metadata          map[string]string `json:"metadata"`
	NotificationURL   string            `json:"notification_url,omitempty"`
}

type paymentBody struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	PaymentMethodID   string          `json:"payment_method_id"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Metadata          map[string]any  `json:"metadata"`
}

// CreatePreference creates a checkout preference for a fee
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	body := preferenceBody{
		Items: []preferenceItem{{
			ID:         req.ExternalReference,
			Title:      req.Description,
			Quantity:   1,
			CurrencyID: req.Currency,
			UnitPrice:  req.Amount.InexactFloat64(),
		}},
		ExternalReference: req.ExternalReference,
		Metadata:          map[string]string{"fee_id": fmt.Sprintf("%d", req.FeeID)},
		NotificationURL:   c.notificationURL,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference: %w", err)
	}

	headers := map[string]string{"X-Idempotency-Key": uuid.NewString()}
	raw, err := c.sendRequest(ctx, http.MethodPost, "/checkout/preferences", payload, headers)
	if err != nil {
		return nil, err
	}

	var pref Preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, fmt.Errorf("failed to parse preference response: %w", err)
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("preference response has no id")
	}

	c.log.Infof("Created payment preference %s for %s", pref.ID, req.ExternalReference)
	return &pref, nil
}

// GetPayment fetches the full payment detail for a payment id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*models.PaymentEvent, error) {
	if paymentID == "" {
		return nil, models.NewValidationError("payment id is required")
	}
	raw, err := c.sendRequest(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, nil)
	if err != nil {
		return nil, err
	}

	var p paymentBody
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse payment response: %w", err)
	}

	event := &models.PaymentEvent{
		ExternalPaymentID: p.ID.String(),
		Status:            models.ExternalStatus(p.Status),
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
		PaymentMethod:     p.PaymentMethodID,
		Amount:            p.TransactionAmount,
	}
	if v, ok := p.Metadata["fee_id"]; ok && v != nil {
		event.FeeID = metadataString(v)
	}
	return event, nil
}

// metadataString renders a metadata value; the processor may turn numeric
// strings into JSON numbers.
func metadataString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// sendRequest performs an authenticated call and returns the response body.
// Timeouts and 5xx/429 answers are reported as transient.
func (c *Client) sendRequest(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
			return nil, models.NewTransientError("payment processor unreachable", err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransientError("failed to read payment processor response", err)
	}

	c.log.Debugf("Mercado Pago %s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.ErrPaymentNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, models.NewTransientError("payment processor unavailable",
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
