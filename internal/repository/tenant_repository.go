package repository

import (
	"context"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
)

// GormTenantRepository is a GORM implementation of TenantRepository
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &GormTenantRepository{db: db}
}

// Create creates a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

// FindByID finds a tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindBySlug finds a tenant by slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// SlugExists reports whether slug is used by a tenant other than excludeID
func (r *GormTenantRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates a tenant
func (r *GormTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Save(tenant).Error
}

// Delete deletes a tenant and all related data.
// Callers run it inside Store.WithTx so a failure leaves nothing half-removed.
func (r *GormTenantRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)

	// Delete all tasks in the tenant
	if err := db.Where("tenant_id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return err
	}

	// Delete all projects
	if err := db.Where("tenant_id = ?", id).Delete(&models.Project{}).Error; err != nil {
		return err
	}

	// Delete all memberships
	if err := db.Where("tenant_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}

	// Users that were operating in the tenant lose their active context
	if err := NewUserRepository(r.db).ClearCurrentTenant(ctx, id); err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.Tenant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
