package repository

import (
	"context"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// NotificationRepository stores the notifications tenants see about
// detection and remediation activity.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.TenantNotification) error
	// ListByTenant returns a tenant's newest notifications, optionally only
	// unread ones.
	ListByTenant(ctx context.Context, tenantID uint, unreadOnly bool, limit int) ([]entities.TenantNotification, error)
	CountUnread(ctx context.Context, tenantID uint) (int64, error)
	// MarkRead stamps ReadAt. Returns ErrNotificationNotFound for unknown
	// or already-read rows.
	MarkRead(ctx context.Context, id uint, at time.Time) error
	// DeleteReadBefore prunes read notifications older than the cutoff.
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}
