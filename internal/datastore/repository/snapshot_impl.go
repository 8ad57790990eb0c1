package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// snapshotRepository implements SnapshotRepository.
type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Window returns snapshots inside the inclusive time range, oldest first.
func (r *snapshotRepository) Window(ctx context.Context, tenantID uint, from, to time.Time) ([]entities.PerformanceSnapshot, error) {
	var snapshots []entities.PerformanceSnapshot
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND timestamp >= ? AND timestamp <= ?", tenantID, from, to).
		Order("timestamp ASC").
		Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot window for tenant %d: %w", tenantID, err)
	}
	return snapshots, nil
}

// Latest returns the newest snapshot at or after notBefore.
func (r *snapshotRepository) Latest(ctx context.Context, tenantID uint, notBefore time.Time) (*entities.PerformanceSnapshot, error) {
	var snapshot entities.PerformanceSnapshot
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND timestamp >= ?", tenantID, notBefore).
		Order("timestamp DESC").
		First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load latest snapshot for tenant %d: %w", tenantID, err)
	}
	return &snapshot, nil
}

// Create inserts a snapshot.
func (r *snapshotRepository) Create(ctx context.Context, snapshot *entities.PerformanceSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// DeleteBefore prunes snapshots with Timestamp older than before.
func (r *snapshotRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&entities.PerformanceSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete snapshots before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}
