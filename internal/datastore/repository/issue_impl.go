package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// issueRepository implements IssueRepository.
type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

// Create inserts a detected issue.
func (r *issueRepository) Create(ctx context.Context, issue *entities.DetectedIssue) error {
	if err := r.db.WithContext(ctx).Create(issue).Error; err != nil {
		return fmt.Errorf("failed to create detected issue: %w", err)
	}
	return nil
}

// FindOpen returns the open issue for (tenantID, issueType).
func (r *issueRepository) FindOpen(ctx context.Context, tenantID uint, issueType string) (*entities.DetectedIssue, error) {
	var issue entities.DetectedIssue
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND issue_type = ? AND resolved_at IS NULL", tenantID, issueType).
		First(&issue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to find open issue %s for tenant %d: %w", issueType, tenantID, err)
	}
	return &issue, nil
}

// ListOpen returns a tenant's open issues, oldest first.
func (r *issueRepository) ListOpen(ctx context.Context, tenantID uint) ([]entities.DetectedIssue, error) {
	var issues []entities.DetectedIssue
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resolved_at IS NULL", tenantID).
		Order("detected_at ASC").
		Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list open issues for tenant %d: %w", tenantID, err)
	}
	return issues, nil
}

// ListRecent returns a tenant's newest issues.
func (r *issueRepository) ListRecent(ctx context.Context, tenantID uint, limit int) ([]entities.DetectedIssue, error) {
	var issues []entities.DetectedIssue
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("detected_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent issues for tenant %d: %w", tenantID, err)
	}
	return issues, nil
}

// Resolve stamps ResolvedAt on an open issue.
func (r *issueRepository) Resolve(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.DetectedIssue{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to resolve issue %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIssueNotFound
	}
	return nil
}

// MarkAutoFixed flags an issue as remediated automatically.
func (r *issueRepository) MarkAutoFixed(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&entities.DetectedIssue{}).
		Where("id = ?", id).
		Update("auto_fixed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark issue %d auto-fixed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIssueNotFound
	}
	return nil
}
