package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// actionLogRepository implements ActionLogRepository.
type actionLogRepository struct {
	db *gorm.DB
}

// NewActionLogRepository creates a new ActionLogRepository.
func NewActionLogRepository(db *gorm.DB) ActionLogRepository {
	return &actionLogRepository{db: db}
}

// Append inserts one audit row.
func (r *actionLogRepository) Append(ctx context.Context, action *entities.AutomationAction) error {
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("failed to append automation action: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's newest audit rows.
func (r *actionLogRepository) ListByTenant(ctx context.Context, tenantID uint, limit int) ([]entities.AutomationAction, error) {
	var actions []entities.AutomationAction
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("executed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list actions for tenant %d: %w", tenantID, err)
	}
	return actions, nil
}

// ListByIssue returns the audit rows for one issue in execution order.
func (r *actionLogRepository) ListByIssue(ctx context.Context, issueID uint) ([]entities.AutomationAction, error) {
	var actions []entities.AutomationAction
	if err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("executed_at ASC, id ASC").
		Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list actions for issue %d: %w", issueID, err)
	}
	return actions, nil
}

// Stats aggregates action outcomes since the cutoff.
func (r *actionLogRepository) Stats(ctx context.Context, since time.Time) (ActionStats, error) {
	var stats ActionStats
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&entities.AutomationAction{}).
			Where("executed_at >= ?", since)
	}
	if err := base().Count(&stats.Total).Error; err != nil {
		return ActionStats{}, fmt.Errorf("failed to count automation actions: %w", err)
	}
	if err := base().Where("success = ?", true).Count(&stats.Succeeded).Error; err != nil {
		return ActionStats{}, fmt.Errorf("failed to count successful actions: %w", err)
	}
	stats.Failed = stats.Total - stats.Succeeded
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	return stats, nil
}
