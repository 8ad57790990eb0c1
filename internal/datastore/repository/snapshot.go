package repository

import (
	"context"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// SnapshotRepository reads the metric samples written by the external
// collector. The detector only ever reads; Create exists for the collector
// ingest path and for seeding test data.
type SnapshotRepository interface {
	// Window returns a tenant's snapshots with from <= Timestamp <= to,
	// oldest first. An empty window is not an error.
	Window(ctx context.Context, tenantID uint, from, to time.Time) ([]entities.PerformanceSnapshot, error)
	// Latest returns the tenant's newest snapshot with Timestamp >=
	// notBefore. Returns ErrSnapshotNotFound when none qualifies.
	Latest(ctx context.Context, tenantID uint, notBefore time.Time) (*entities.PerformanceSnapshot, error)
	Create(ctx context.Context, snapshot *entities.PerformanceSnapshot) error
	// DeleteBefore prunes snapshots older than the cutoff.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
