package services

import (
	"context"
	"log/slog"
	"time"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
)

// NotificationService owns the durable notification records and the
// follow-up live nudge. The durable write always happens first; the push is
// best effort on top of it.
type NotificationService struct {
	log      *slog.Logger
	repo     domain.NotificationRepository
	notifier contracts.Notifier
}

func NewNotificationService(
	log *slog.Logger,
	repo domain.NotificationRepository,
	notifier contracts.Notifier,
) *NotificationService {
	return &NotificationService{log: log, repo: repo, notifier: notifier}
}

// Notify persists a notification for a user, then refreshes their live
// unread counter. A push failure never surfaces: the record is durable and
// the client will pull it on next fetch.
func (s *NotificationService) Notify(ctx context.Context, userID int64, typ, title, body string) error {
	if userID <= 0 {
		return domain.ErrInvalidUserID
	}
	n := &domain.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if _, err := s.repo.CreateNotification(ctx, n); err != nil {
		s.log.ErrorContext(ctx, "notifications - notify - create failed", "user_id", userID, "err", err)
		return err
	}
	s.pushUnread(ctx, userID)
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

func (s *NotificationService) ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead flags one notification read; only the owner may do so. The live
// counter refreshes afterward.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	n, err := s.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		s.log.ErrorContext(ctx, "notifications - mark read - update failed", "user_id", userID, "notification_id", notificationID, "err", err)
		return err
	}
	s.pushUnread(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "notifications - mark all read - update failed", "user_id", userID, "err", err)
		return err
	}
	s.notifier.PushUnreadCount(userID, 0)
	return nil
}

func (s *NotificationService) pushUnread(ctx context.Context, userID int64) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "notifications - push unread - count failed", "user_id", userID, "err", err)
		return
	}
	s.notifier.PushUnreadCount(userID, count)
}
