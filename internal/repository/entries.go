package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Dan9191/studio-billing/internal/models"
)

const entryColumns = `id, kind, category, description, counterparty, amount, due_date, paid_at,
		status, payment_method, notes, created_at, updated_at`

func scanEntry(row scanner) (*models.Entry, error) {
	e := &models.Entry{}
	err := row.Scan(
		&e.ID, &e.Kind, &e.Category, &e.Description, &e.Counterparty, &e.Amount, &e.DueDate,
		&e.PaidAt, &e.Status, &e.PaymentMethod, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateEntry inserts an expense or revenue entry
func (r *Repository) CreateEntry(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO studio.entries (kind, category, description, counterparty, amount, due_date,
			paid_at, status, payment_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		e.Kind, e.Category, e.Description, e.Counterparty, e.Amount, e.DueDate,
		e.PaidAt, e.Status, e.PaymentMethod, e.Notes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return wrap("create entry", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID
func (r *Repository) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM studio.entries WHERE id = $1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrEntryNotFound
	}
	if err != nil {
		return nil, wrap("get entry", err)
	}
	return e, nil
}

// ListEntries lists entries matching the filter, earliest due date first
func (r *Repository) ListEntries(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.Month.IsZero() {
		start := models.MonthStart(filter.Month)
		args = append(args, start, start.AddDate(0, 1, 0))
		conds = append(conds, fmt.Sprintf("due_date >= $%d AND due_date < $%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + entryColumns + ` FROM studio.entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY due_date, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list entries", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrap("scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate entries", err)
	}
	return entries, nil
}

// UpdateEntry writes every mutable column of an entry
func (r *Repository) UpdateEntry(ctx context.Context, e *models.Entry) error {
	query := `
		UPDATE studio.entries
		SET category = $2, description = $3, counterparty = $4, amount = $5, due_date = $6,
			paid_at = $7, status = $8, payment_method = $9, notes = $10, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.Category, e.Description, e.Counterparty, e.Amount, e.DueDate,
		e.PaidAt, e.Status, e.PaymentMethod, e.Notes,
	).Scan(&e.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.ErrEntryNotFound
	}
	if err != nil {
		return wrap("update entry", err)
	}
	return nil
}

// DeleteEntry physically removes an entry
func (r *Repository) DeleteEntry(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM studio.entries WHERE id = $1`, id)
	if err != nil {
		return wrap("delete entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrap("get rows affected", err)
	}
	if rowsAffected == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}
