package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/db"
)

// NotificationRepository provides data access for Notification rows.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// Create persists a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *db.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListFor returns the user's notifications, newest first. When unreadOnly
// is set, read notifications are filtered out.
func (r *NotificationRepository) ListFor(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	limit, offset int,
) ([]db.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []db.Notification
	err := query.Find(&notifications).Error
	return notifications, err
}

// MarkRead marks a notification read. Scoped to the owning user: someone
// else's notification id affects zero rows. Returns whether a row changed.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

// CountUnread counts the user's unread notifications. Used with the Redis
// counter (DB is the fallback).
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
