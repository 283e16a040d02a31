package models

import "time"

// NotificationKind classifies user notifications
type NotificationKind string

const (
	NotificationPaymentApproved NotificationKind = "payment_approved"
	NotificationFeeOverdue      NotificationKind = "fee_overdue"
	NotificationInfo            NotificationKind = "info"
)

// Notification is a user-visible message. Link is a plain URL, not a foreign key.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
