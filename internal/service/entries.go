package service

import (
	"context"
	"time"

	"github.com/Dan9191/studio-billing/internal/ledger"
	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/shopspring/decimal"
)

// CreateEntryInput describes an expense or revenue entered by an administrator
type CreateEntryInput struct {
	Kind          models.EntryKind
	Category      string
	Description   string
	Counterparty  string
	Amount        decimal.Decimal
	DueDate       time.Time
	Status        models.EntryStatus
	PaidAt        *time.Time
	PaymentMethod string
	Notes         string
}

// UpdateEntryInput holds a partial entry edit; nil fields are left unchanged
type UpdateEntryInput struct {
	Category      *string
	Description   *string
	Counterparty  *string
	Amount        *decimal.Decimal
	DueDate       *time.Time
	Status        *models.EntryStatus
	PaidAt        *time.Time
	PaymentMethod *string
	Notes         *string
}

// CreateEntry records an administrative expense or an income outside fees
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (*models.Entry, error) {
	status := in.Status
	if status == "" {
		status = models.EntryStatusPending
	}
	entry, err := s.normalizeEntry(models.Entry{
		Kind:          in.Kind,
		Category:      in.Category,
		Description:   in.Description,
		Counterparty:  in.Counterparty,
		Amount:        in.Amount,
		DueDate:       dateOnly(in.DueDate),
		PaidAt:        in.PaidAt,
		Status:        status,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateEntry(ctx, &entry); err != nil {
		return nil, err
	}
	s.log.Infof("%s entry %d created, %s %s", entry.Kind, entry.ID, entry.Category, entry.Amount.StringFixed(2))
	return &entry, nil
}

// GetEntry returns an entry as of today
func (s *Service) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presentEntry(entry, s.Today()), nil
}

// ListEntries lists entries as of today. Pending and overdue are told apart
// by due date, so those filters and the limit run after loading.
func (s *Service) ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	storeFilter := filter
	derived := filter.Status.Outstanding()
	if derived {
		storeFilter.Status = ""
		storeFilter.Limit = 0
	}
	entries, err := s.store.ListEntries(ctx, storeFilter)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	result := make([]*models.Entry, 0, len(entries))
	for _, entry := range entries {
		entry = s.presentEntry(entry, today)
		if derived && entry.Status != filter.Status {
			continue
		}
		result = append(result, entry)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// UpdateEntry applies an administrator edit and re-derives the status
func (s *Service) UpdateEntry(ctx context.Context, id int64, in UpdateEntryInput) (*models.Entry, error) {
	current, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := *current
	if in.Category != nil {
		entry.Category = *in.Category
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.Counterparty != nil {
		entry.Counterparty = *in.Counterparty
	}
	if in.Amount != nil {
		entry.Amount = *in.Amount
	}
	if in.DueDate != nil {
		entry.DueDate = dateOnly(*in.DueDate)
	}
	if in.Status != nil {
		entry.Status = *in.Status
	}
	if in.PaidAt != nil {
		entry.PaidAt = in.PaidAt
	}
	if in.PaymentMethod != nil {
		entry.PaymentMethod = *in.PaymentMethod
	}
	if in.Notes != nil {
		entry.Notes = *in.Notes
	}

	entry, err = s.normalizeEntry(entry)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEntry(ctx, &entry); err != nil {
		return nil, err
	}
	s.log.Infof("Entry %d updated, status %s", entry.ID, entry.Status)
	return &entry, nil
}

// DeleteEntry removes an entry for good
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Entry %d deleted", id)
	return nil
}

func (s *Service) normalizeEntry(entry models.Entry) (models.Entry, error) {
	return ledger.NormalizeEntry(entry, s.now(), s.Today())
}

func (s *Service) presentEntry(entry *models.Entry, today time.Time) *models.Entry {
	advanced := ledger.AdvanceEntryIfOverdue(*entry, today)
	return &advanced
}
