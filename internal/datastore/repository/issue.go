package repository

import (
	"context"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// IssueRepository persists detected issues. Issues are never deleted;
// resolution stamps ResolvedAt.
type IssueRepository interface {
	Create(ctx context.Context, issue *entities.DetectedIssue) error
	// FindOpen returns the single open issue for the pair, or
	// ErrIssueNotFound when the tenant has no open issue of that type.
	FindOpen(ctx context.Context, tenantID uint, issueType string) (*entities.DetectedIssue, error)
	// ListOpen returns all open issues for a tenant, oldest first.
	ListOpen(ctx context.Context, tenantID uint) ([]entities.DetectedIssue, error)
	// ListRecent returns a tenant's newest issues, open or resolved.
	ListRecent(ctx context.Context, tenantID uint, limit int) ([]entities.DetectedIssue, error)
	// Resolve stamps ResolvedAt. Resolving an already-resolved issue is an
	// ErrIssueNotFound.
	Resolve(ctx context.Context, id uint, at time.Time) error
	MarkAutoFixed(ctx context.Context, id uint) error
}
