package repository

import (
	"context"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
)

// TenantRepository reads the tenant roster the remediation cycle walks.
type TenantRepository interface {
	// ListActive returns tenants with status "active", ordered by ID.
	ListActive(ctx context.Context) ([]entities.Tenant, error)
	// Get returns a tenant by ID. Returns ErrTenantNotFound if absent.
	Get(ctx context.Context, id uint) (*entities.Tenant, error)
	Create(ctx context.Context, tenant *entities.Tenant) error
	// SetAutomationLevel changes how far automated remediation may go.
	SetAutomationLevel(ctx context.Context, id uint, level int) error
}
