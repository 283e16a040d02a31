package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/lib/pq"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return models.NewTransientError("database unavailable", err)
	}
	return nil
}

// wrap classifies a driver error. Connection problems become transient so
// that webhook callers answer with a retryable status.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return fmt.Errorf("failed to %s: %w", op, models.ErrFeeExists)
		}
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57":
			return models.NewTransientError("failed to "+op, err)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return models.NewTransientError("failed to "+op, err)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

type scanner interface {
	Scan(dest ...any) error
}
