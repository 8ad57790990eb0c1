package repository

import (
	"context"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// InterventionRepository records operator-triggered playbook runs, kept
// separate from the automated action log.
type InterventionRepository interface {
	Record(ctx context.Context, intervention *entities.AdminIntervention) error
	ListByTenant(ctx context.Context, tenantID uint, limit int) ([]entities.AdminIntervention, error)
	ListByOperator(ctx context.Context, operatorID uint, limit int) ([]entities.AdminIntervention, error)
}
