package repository

import (
	"context"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether an account already uses email
func (r *GormUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetCurrentTenant points the user at tenantID and stores the role projection.
// Passing nil for both clears the active tenant.
func (r *GormUserRepository) SetCurrentTenant(ctx context.Context, userID string, tenantID *string, role *models.Role) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_tenant_id": tenantID,
			"active_role":       role,
		}).Error
}

// ClearCurrentTenant resets the pointer of every user whose active tenant is tenantID
func (r *GormUserRepository) ClearCurrentTenant(ctx context.Context, tenantID string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("current_tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"current_tenant_id": nil,
			"active_role":       nil,
		}).Error
}

// Delete removes the user together with its memberships and tokens, unassigning its tasks.
// Callers run it inside Store.WithTx.
func (r *GormUserRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Task{}).Where("assigned_to = ?", id).Update("assigned_to", nil).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.AccessToken{}).Error; err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
