package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
)

// GormMembershipRepository is a GORM implementation of MembershipRepository
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Attach adds a user to a tenant with role
func (r *GormMembershipRepository) Attach(ctx context.Context, userID, tenantID string, role models.Role) (*models.Membership, error) {
	if _, err := r.Find(ctx, userID, tenantID); err == nil {
		return nil, ErrMembershipExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	membership := &models.Membership{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
	}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		// Lost a race with a concurrent attach
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrMembershipExists, err)
		}
		return nil, err
	}
	return membership, nil
}

// Detach removes a user from a tenant
func (r *GormMembershipRepository) Detach(ctx context.Context, userID, tenantID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Delete(&models.Membership{}).Error
}

// Find finds a specific membership
func (r *GormMembershipRepository) Find(ctx context.Context, userID, tenantID string) (*models.Membership, error) {
	var membership models.Membership
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// UpdateRole changes the role on an existing membership
func (r *GormMembershipRepository) UpdateRole(ctx context.Context, userID, tenantID string, role models.Role) error {
	return r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Update("role", role).Error
}

// ListByTenant lists all members of a tenant
func (r *GormMembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Membership, error) {
	var members []models.Membership
	if err := r.db.WithContext(ctx).Preload("User").
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListByUser lists all tenants a user is a member of
func (r *GormMembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := r.db.WithContext(ctx).Preload("Tenant").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByUser counts the tenants a user belongs to
func (r *GormMembershipRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
