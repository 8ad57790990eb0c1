package repository

import (
	"context"
	"fmt"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// interventionRepository implements InterventionRepository.
type interventionRepository struct {
	db *gorm.DB
}

// NewInterventionRepository creates a new InterventionRepository.
func NewInterventionRepository(db *gorm.DB) InterventionRepository {
	return &interventionRepository{db: db}
}

// Record inserts an intervention row.
func (r *interventionRepository) Record(ctx context.Context, intervention *entities.AdminIntervention) error {
	if err := r.db.WithContext(ctx).Create(intervention).Error; err != nil {
		return fmt.Errorf("failed to record admin intervention: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's newest interventions.
func (r *interventionRepository) ListByTenant(ctx context.Context, tenantID uint, limit int) ([]entities.AdminIntervention, error) {
	return r.list(ctx, "tenant_id = ?", tenantID, limit)
}

// ListByOperator returns an operator's newest interventions.
func (r *interventionRepository) ListByOperator(ctx context.Context, operatorID uint, limit int) ([]entities.AdminIntervention, error) {
	return r.list(ctx, "operator_id = ?", operatorID, limit)
}

func (r *interventionRepository) list(ctx context.Context, cond string, arg uint, limit int) ([]entities.AdminIntervention, error) {
	var interventions []entities.AdminIntervention
	query := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("executed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&interventions).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin interventions: %w", err)
	}
	return interventions, nil
}
