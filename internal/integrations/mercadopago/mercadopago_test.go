package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.Config{
		MPBaseURL:       srv.URL,
		MPAccessToken:   "TEST-token",
		MPTimeout:       timeout,
		NotificationURL: "https://studio.example.com/webhooks/mercadopago",
	}, log)
}

func TestCreatePreference(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pref-123","init_point":"https://mp.example/checkout/pref-123"}`))
	}, time.Second)

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		Description:       "Mensalidade 01/2025",
		Amount:            decimal.RequireFromString("259.99"),
		Currency:          "BRL",
		FeeID:             42,
		ExternalReference: "FEE-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp.example/checkout/pref-123", pref.InitPoint)

	assert.Equal(t, "FEE-42", got["external_reference"])
	assert.Equal(t, map[string]any{"fee_id": "42"}, got["metadata"])
	assert.Equal(t, "https://studio.example.com/webhooks/mercadopago", got["notification_url"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 259.99, items[0].(map[string]any)["unit_price"])
	assert.Equal(t, "BRL", items[0].(map[string]any)["currency_id"])
}

func TestGetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/999", r.URL.Path)
		w.Write([]byte(`{
			"id": 999,
			"status": "approved",
			"status_detail": "accredited",
			"external_reference": "FEE-42",
			"payment_method_id": "pix",
			"transaction_amount": 200.00,
			"metadata": {"fee_id": 42}
		}`))
	}, time.Second)

	event, err := client.GetPayment(context.Background(), "999")
	require.NoError(t, err)
	assert.Equal(t, "999", event.ExternalPaymentID)
	assert.Equal(t, models.ExternalStatusApproved, event.Status)
	assert.Equal(t, "42", event.FeeID)
	assert.Equal(t, "FEE-42", event.ExternalReference)
	assert.Equal(t, "pix", event.PaymentMethod)
	assert.True(t, event.Amount.Equal(decimal.NewFromInt(200)))
}

func TestGetPaymentErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, time.Second)

		_, err := client.GetPayment(context.Background(), "1")
		assert.ErrorIs(t, err, models.ErrPaymentNotFound)
	})

	t.Run("server error is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, time.Second)

		_, err := client.GetPayment(context.Background(), "1")
		assert.True(t, models.IsTransient(err))
	})

	t.Run("timeout is transient", func(t *testing.T) {
		release := make(chan struct{})
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)
		defer close(release)

		_, err := client.GetPayment(context.Background(), "1")
		assert.True(t, models.IsTransient(err))
	})

	t.Run("client error is not transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid access token"}`))
		}, time.Second)

		_, err := client.GetPayment(context.Background(), "1")
		require.Error(t, err)
		assert.False(t, models.IsTransient(err))
	})

	t.Run("empty id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		}, time.Second)

		_, err := client.GetPayment(context.Background(), "")
		assert.Equal(t, models.KindValidation, models.KindOf(err))
	})
}
