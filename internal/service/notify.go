package service

import (
	"context"
	"time"

	"github.com/Dan9191/studio-billing/internal/models"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 5 * time.Second

// Notify queues a notification for a user and returns at once. The write
// runs in the background, detached from the caller's cancellation, and its
// errors are only logged.
func (s *Service) Notify(ctx context.Context, userID int64, kind models.NotificationKind, title, body, link string) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.storeNotification(ctx, userID, kind, title, body, link)
	}()
}

func (s *Service) storeNotification(ctx context.Context, userID int64, kind models.NotificationKind, title, body, link string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	n := &models.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
		Link:   link,
	}
	err := s.store.CreateNotification(ctx, n)
	s.metrics.ObserveNotification(string(kind), err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"kind":    kind,
		}).Error("Failed to create notification")
		return
	}
	s.log.Debugf("Notification %d created for user %d", n.ID, userID)
}

// ListNotifications lists a user's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

// MarkNotificationRead marks one of the user's notifications as read.
// Marking twice keeps the first read time.
func (s *Service) MarkNotificationRead(ctx context.Context, id, userID int64) (*models.Notification, error) {
	return s.store.MarkNotificationRead(ctx, id, userID, s.now())
}
