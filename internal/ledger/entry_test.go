package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rentEntry(status models.EntryStatus, due time.Time) models.Entry {
	return models.Entry{
		Kind:     models.EntryKindExpense,
		Category: "rent",
		Amount:   decimal.NewFromInt(1500),
		DueDate:  due,
		Status:   status,
	}
}

func TestNormalizeEntry(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	today := date(2025, 1, 15)

	t.Run("past due becomes overdue", func(t *testing.T) {
		e, err := NormalizeEntry(rentEntry(models.EntryStatusPending, date(2025, 1, 5)), now, today)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusOverdue, e.Status)
	})

	t.Run("overdue with a future due date goes back to pending", func(t *testing.T) {
		e, err := NormalizeEntry(rentEntry(models.EntryStatusOverdue, date(2025, 2, 5)), now, today)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusPending, e.Status)
	})

	t.Run("paid gets a paid date", func(t *testing.T) {
		e, err := NormalizeEntry(rentEntry(models.EntryStatusPaid, date(2025, 1, 5)), now, today)
		require.NoError(t, err)
		require.NotNil(t, e.PaidAt)
		assert.Equal(t, now, *e.PaidAt)
		assert.Equal(t, models.EntryStatusPaid, e.Status)
	})

	t.Run("cancelled drops the paid date", func(t *testing.T) {
		in := rentEntry(models.EntryStatusCancelled, date(2025, 1, 5))
		in.PaidAt = &now
		e, err := NormalizeEntry(in, now, today)
		require.NoError(t, err)
		assert.Nil(t, e.PaidAt)
		assert.Equal(t, models.EntryStatusCancelled, e.Status)
	})

	t.Run("negative amount", func(t *testing.T) {
		in := rentEntry(models.EntryStatusPending, date(2025, 2, 5))
		in.Amount = decimal.NewFromInt(-1)
		_, err := NormalizeEntry(in, now, today)
		assert.True(t, errors.Is(err, models.ErrNegativeAmount))
	})

	t.Run("category must match the kind", func(t *testing.T) {
		in := rentEntry(models.EntryStatusPending, date(2025, 2, 5))
		in.Kind = models.EntryKindRevenue
		_, err := NormalizeEntry(in, now, today)
		require.Error(t, err)
		assert.Equal(t, models.KindValidation, models.KindOf(err))
		assert.Equal(t, "category", models.FieldsOf(err)[0].Field)
	})
}
