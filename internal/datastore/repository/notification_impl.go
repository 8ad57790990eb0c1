package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a notification.
func (r *notificationRepository) Create(ctx context.Context, notification *entities.TenantNotification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's newest notifications.
func (r *notificationRepository) ListByTenant(ctx context.Context, tenantID uint, unreadOnly bool, limit int) ([]entities.TenantNotification, error) {
	var notifications []entities.TenantNotification
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications for tenant %d: %w", tenantID, err)
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications for a tenant.
func (r *notificationRepository) CountUnread(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.TenantNotification{}).
		Where("tenant_id = ? AND is_read = ?", tenantID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for tenant %d: %w", tenantID, err)
	}
	return count, nil
}

// MarkRead stamps ReadAt on an unread notification.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.TenantNotification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteReadBefore prunes read notifications older than the cutoff.
func (r *notificationRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, before).
		Delete(&entities.TenantNotification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete read notifications before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}
