package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
)

const notificationColumns = `id, user_id, kind, title, body, link, read, read_at, created_at`

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	if err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Link, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateNotification stores a new notification
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO studio.notifications (user_id, kind, title, body, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Kind, n.Title, n.Body, n.Link).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return wrap("create notification", err)
	}
	return nil
}

// ListNotifications lists a user's notifications, newest first
func (r *Repository) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM studio.notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, wrap("scan notification", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate notifications", err)
	}
	return list, nil
}

// MarkNotificationRead flags a notification as read. The first read time is kept.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID int64, at time.Time) (*models.Notification, error) {
	query := `
		UPDATE studio.notifications SET read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id, userID, at))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotificationNotFound
	}
	if err != nil {
		return nil, wrap("mark notification read", err)
	}
	return n, nil
}
