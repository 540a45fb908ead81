package notify

import (
	"context"

	"github.com/bandhanapp/bandhan-server/internal/app"
	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/repository"
)

// Pusher delivers an event to a user's live connections. Implemented by
// the realtime hub; a no-op implementation is fine for offline-only
// deployments and tests.
type Pusher interface {
	ToUser(userID, event string, payload any)
	IsOnline(userID string) bool
}

// Service is the notification fanout: every notification is persisted
// first, then pushed best-effort to the user's live connections. Push
// failures never roll back the persisted row; offline users retrieve
// notifications via List.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
	pusher Pusher
}

func NewService(appCtx *app.AppContext, pusher Pusher) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
		pusher: pusher,
	}
}

// Notify persists a notification for userID and, if they are connected,
// pushes a new-notification event to their personal channel.
func (s *Service) Notify(
	ctx context.Context,
	userID, notifType, title, body string,
	data map[string]any,
) (*db.Notification, error) {
	n := &db.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: body,
		Data:    data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperr.Internal("failed to persist notification", err)
	}

	key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)
	s.appCtx.RedisCache.BumpCounter(ctx, key, 1)

	// Live delivery is best-effort on top of the durable row.
	if s.pusher != nil && s.pusher.IsOnline(userID) {
		s.pusher.ToUser(userID, "new-notification", map[string]any{
			"type":    n.Type,
			"title":   n.Title,
			"message": n.Message,
			"data":    n.Data,
		})
	}

	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]db.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	notifications, err := s.repo.ListFor(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications read. A notification id
// the user does not own behaves as not found.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	changed, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return apperr.Internal("failed to mark notification read", err)
	}
	if changed {
		key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)
		s.appCtx.RedisCache.BumpCounter(ctx, key, -1)
	}
	return nil
}

// UnreadCount returns the user's unread notification count, cache-first
// with DB fallback.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	key := s.appCtx.RedisCache.KeyForUnreadNotifications(userID)

	if n, ok, _ := s.appCtx.RedisCache.GetCounter(ctx, key); ok {
		return n, nil
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	_ = s.appCtx.RedisCache.SetCounter(ctx, key, count)
	return count, nil
}
