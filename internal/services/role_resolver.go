package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"gorm.io/gorm"
)

// RoleResolver answers role questions from the membership rows. Nothing is
// cached; User.ActiveRole is only a projection kept in step by SyncActiveRole.
type RoleResolver struct {
	repos repository.Repositories
}

// NewRoleResolver creates a RoleResolver over repos, which may be a transaction
func NewRoleResolver(repos repository.Repositories) *RoleResolver {
	return &RoleResolver{repos: repos}
}

// RoleOf returns the user's role in tenantID, nil when not a member
func (r *RoleResolver) RoleOf(ctx context.Context, userID, tenantID string) (*models.Role, error) {
	membership, err := r.repos.Memberships().Find(ctx, userID, tenantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	role := membership.Role
	return &role, nil
}

// ActiveRole returns the user's role in its current tenant, nil without one
func (r *RoleResolver) ActiveRole(ctx context.Context, user *models.User) (*models.Role, error) {
	if !user.HasActiveTenant() {
		return nil, nil
	}
	return r.RoleOf(ctx, user.ID, *user.CurrentTenantID)
}

// IsAdmin reports whether the user is an admin of its current tenant
func (r *RoleResolver) IsAdmin(ctx context.Context, user *models.User) (bool, error) {
	role, err := r.ActiveRole(ctx, user)
	if err != nil {
		return false, err
	}
	return role != nil && *role == models.RoleAdmin, nil
}

// SyncActiveRole rewrites the stored active role from the current membership
func (r *RoleResolver) SyncActiveRole(ctx context.Context, user *models.User) error {
	role, err := r.ActiveRole(ctx, user)
	if err != nil {
		return err
	}
	if err := r.repos.Users().SetCurrentTenant(ctx, user.ID, user.CurrentTenantID, role); err != nil {
		return fmt.Errorf("failed to sync active role: %w", err)
	}
	user.ActiveRole = role
	return nil
}
