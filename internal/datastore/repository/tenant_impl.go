package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"gorm.io/gorm"
)

// tenantRepository implements TenantRepository.
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// ListActive returns active tenants ordered by ID.
func (r *tenantRepository) ListActive(ctx context.Context) ([]entities.Tenant, error) {
	var tenants []entities.Tenant
	if err := r.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("id ASC").
		Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	return tenants, nil
}

// Get returns a tenant by ID. Returns ErrTenantNotFound if absent.
func (r *tenantRepository) Get(ctx context.Context, id uint) (*entities.Tenant, error) {
	var tenant entities.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant %d: %w", id, err)
	}
	return &tenant, nil
}

// Create inserts a tenant.
func (r *tenantRepository) Create(ctx context.Context, tenant *entities.Tenant) error {
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// SetAutomationLevel updates a tenant's automation level.
func (r *tenantRepository) SetAutomationLevel(ctx context.Context, id uint, level int) error {
	if level < entities.AutomationNotifyOnly || level > entities.AutomationFull {
		return fmt.Errorf("invalid automation level %d", level)
	}
	result := r.db.WithContext(ctx).
		Model(&entities.Tenant{}).
		Where("id = ?", id).
		Update("automation_level", level)
	if result.Error != nil {
		return fmt.Errorf("failed to set automation level for tenant %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}
