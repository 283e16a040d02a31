package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/lib/pq"
)

const feeColumns = `id, student_id, period_start, amount_gross, amount_discount, amount_final,
		due_date, paid_at, status, payment_method, notes, created_at, updated_at`

func scanFee(row scanner) (*models.Fee, error) {
	fee := &models.Fee{}
	err := row.Scan(
		&fee.ID, &fee.StudentID, &fee.PeriodStart, &fee.AmountGross, &fee.AmountDiscount,
		&fee.AmountFinal, &fee.DueDate, &fee.PaidAt, &fee.Status, &fee.PaymentMethod,
		&fee.Notes, &fee.CreatedAt, &fee.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fee, nil
}

func scanFees(rows *sql.Rows) ([]*models.Fee, error) {
	defer rows.Close()

	var fees []*models.Fee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, wrap("scan fee", err)
		}
		fees = append(fees, fee)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate fees", err)
	}
	return fees, nil
}

// CreateFee inserts a new fee
func (r *Repository) CreateFee(ctx context.Context, fee *models.Fee) error {
	query := `
		INSERT INTO studio.fees (student_id, period_start, amount_gross, amount_discount, amount_final,
			due_date, paid_at, status, payment_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		fee.StudentID, fee.PeriodStart, fee.AmountGross, fee.AmountDiscount, fee.AmountFinal,
		fee.DueDate, fee.PaidAt, fee.Status, fee.PaymentMethod, fee.Notes,
	).Scan(&fee.ID, &fee.CreatedAt, &fee.UpdatedAt)
	if err != nil {
		return wrap("create fee", err)
	}
	return nil
}

// CreateFeeIfAbsent inserts a fee unless one already exists for the same
// student and period. It reports whether a row was created.
func (r *Repository) CreateFeeIfAbsent(ctx context.Context, fee *models.Fee) (bool, error) {
	query := `
		INSERT INTO studio.fees (student_id, period_start, amount_gross, amount_discount, amount_final,
			due_date, paid_at, status, payment_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (student_id, period_start) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		fee.StudentID, fee.PeriodStart, fee.AmountGross, fee.AmountDiscount, fee.AmountFinal,
		fee.DueDate, fee.PaidAt, fee.Status, fee.PaymentMethod, fee.Notes,
	).Scan(&fee.ID, &fee.CreatedAt, &fee.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrap("create fee", err)
	}
	return true, nil
}

// GetFee retrieves a fee by ID
func (r *Repository) GetFee(ctx context.Context, id int64) (*models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM studio.fees WHERE id = $1`
	fee, err := scanFee(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrFeeNotFound
	}
	if err != nil {
		return nil, wrap("get fee", err)
	}
	return fee, nil
}

// ListFees lists fees matching the filter, newest period first
func (r *Repository) ListFees(ctx context.Context, filter models.FeeFilter) ([]*models.Fee, error) {
	var (
		conds []string
		args  []any
	)
	switch {
	case filter.Status == models.FeeStatusPending && !filter.AsOf.IsZero():
		args = append(args, filter.AsOf)
		conds = append(conds, fmt.Sprintf("status = 'pending' AND due_date >= $%d", len(args)))
	case filter.Status == models.FeeStatusOverdue && !filter.AsOf.IsZero():
		args = append(args, filter.AsOf)
		conds = append(conds, fmt.Sprintf("(status = 'overdue' OR (status = 'pending' AND due_date < $%d))", len(args)))
	case filter.Status != "":
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if !filter.Month.IsZero() {
		args = append(args, models.MonthStart(filter.Month))
		conds = append(conds, fmt.Sprintf("period_start = $%d", len(args)))
	}

	query := `SELECT ` + feeColumns + ` FROM studio.fees`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY period_start DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list fees", err)
	}
	return scanFees(rows)
}

// UpdateFee writes every mutable column of a fee. A paid fee can only be
// rewritten as paid; the guard runs inside the UPDATE so that concurrent
// approvals are never downgraded.
func (r *Repository) UpdateFee(ctx context.Context, fee *models.Fee) error {
	query := `
		UPDATE studio.fees
		SET amount_gross = $2, amount_discount = $3, amount_final = $4, due_date = $5,
			paid_at = $6, status = $7, payment_method = $8, notes = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND (status <> 'paid' OR $7 = 'paid')
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		fee.ID, fee.AmountGross, fee.AmountDiscount, fee.AmountFinal, fee.DueDate,
		fee.PaidAt, fee.Status, fee.PaymentMethod, fee.Notes,
	).Scan(&fee.UpdatedAt)
	if err == sql.ErrNoRows {
		if _, getErr := r.GetFee(ctx, fee.ID); getErr != nil {
			return getErr
		}
		return models.ErrPaidFeeImmutable
	}
	if err != nil {
		return wrap("update fee", err)
	}
	return nil
}

// DeleteFee physically removes a fee
func (r *Repository) DeleteFee(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM studio.fees WHERE id = $1`, id)
	if err != nil {
		return wrap("delete fee", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrap("get rows affected", err)
	}
	if rowsAffected == 0 {
		return models.ErrFeeNotFound
	}
	return nil
}

// ListPendingDue lists pending fees whose due date is before the given day
func (r *Repository) ListPendingDue(ctx context.Context, before time.Time) ([]*models.Fee, error) {
	query := `SELECT ` + feeColumns + ` FROM studio.fees
		WHERE status = 'pending' AND due_date < $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, wrap("list pending fees", err)
	}
	return scanFees(rows)
}

// MarkOverdue moves the given fees to overdue in one statement. Only rows
// still pending are touched; the transitioned fees are returned.
func (r *Repository) MarkOverdue(ctx context.Context, ids []int64) ([]*models.Fee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		UPDATE studio.fees SET status = 'overdue', updated_at = CURRENT_TIMESTAMP
		WHERE id = ANY($1) AND status = 'pending'
		RETURNING ` + feeColumns
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, wrap("mark fees overdue", err)
	}
	return scanFees(rows)
}

// MarkPaid is the compare-and-set used by payment reconciliation: it moves an
// outstanding fee to paid and reports whether this call performed the move.
func (r *Repository) MarkPaid(ctx context.Context, id int64, paidAt time.Time, method string) (bool, error) {
	query := `
		UPDATE studio.fees
		SET status = 'paid', paid_at = $2,
			payment_method = CASE WHEN $3 = '' THEN payment_method ELSE $3 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('pending', 'overdue')`
	result, err := r.db.ExecContext(ctx, query, id, paidAt, method)
	if err != nil {
		return false, wrap("mark fee paid", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, wrap("get rows affected", err)
	}
	return rowsAffected == 1, nil
}

// SetNotes replaces the notes of a fee
func (r *Repository) SetNotes(ctx context.Context, id int64, notes string) error {
	return r.setNotes(ctx, `UPDATE studio.fees SET notes = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, notes)
}

// SetNotesIfUnpaid replaces the notes of a fee that is not paid
func (r *Repository) SetNotesIfUnpaid(ctx context.Context, id int64, notes string) error {
	query := `UPDATE studio.fees SET notes = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND status <> 'paid'`
	err := r.setNotes(ctx, query, id, notes)
	if errors.Is(err, models.ErrFeeNotFound) {
		// paid fees are left alone on purpose
		return nil
	}
	return err
}

func (r *Repository) setNotes(ctx context.Context, query string, id int64, notes string) error {
	result, err := r.db.ExecContext(ctx, query, id, notes)
	if err != nil {
		return wrap("set fee notes", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrap("get rows affected", err)
	}
	if rowsAffected == 0 {
		return models.ErrFeeNotFound
	}
	return nil
}
