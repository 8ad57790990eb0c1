package repository

import (
	"context"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// ActionLogRepository is the append-only audit trail of automated playbook
// actions.
type ActionLogRepository interface {
	Append(ctx context.Context, action *entities.AutomationAction) error
	// ListByTenant returns a tenant's newest audit rows.
	ListByTenant(ctx context.Context, tenantID uint, limit int) ([]entities.AutomationAction, error)
	// ListByIssue returns all audit rows for an issue in execution order.
	ListByIssue(ctx context.Context, issueID uint) ([]entities.AutomationAction, error)
	// Stats aggregates success counts since the cutoff.
	Stats(ctx context.Context, since time.Time) (ActionStats, error)
}

// ActionStats summarizes automated action outcomes over a period.
type ActionStats struct {
	Total     int64   `json:"total"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	// SuccessRate is Succeeded/Total, 0 when Total is 0.
	SuccessRate float64 `json:"success_rate"`
}
