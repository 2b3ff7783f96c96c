package services

import (
	"context"

	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
)

// TenantContext is the tenant a request operates on, resolved once per
// request and passed explicitly to every tenant-scoped operation.
type TenantContext struct {
	User     *models.User
	TenantID string
	Role     models.Role
}

// IsAdmin reports whether the caller administers the tenant
func (tc *TenantContext) IsAdmin() bool {
	return tc.Role == models.RoleAdmin
}

// UserID returns the caller's id
func (tc *TenantContext) UserID() string {
	return tc.User.ID
}

// ResolveContext returns the user's current tenant id. There is no fallback
// to another membership.
func ResolveContext(user *models.User) (string, error) {
	if user == nil || !user.HasActiveTenant() {
		return "", apierrors.ErrNoActiveTenant
	}
	return *user.CurrentTenantID, nil
}

// TenantContextResolver builds TenantContext values
type TenantContextResolver struct {
	roles *RoleResolver
}

// NewTenantContextResolver creates a TenantContextResolver
func NewTenantContextResolver(roles *RoleResolver) *TenantContextResolver {
	return &TenantContextResolver{roles: roles}
}

// Resolve builds the context for the user's current tenant. A pointer to a
// tenant the user no longer belongs to is rejected.
func (r *TenantContextResolver) Resolve(ctx context.Context, user *models.User) (*TenantContext, error) {
	tenantID, err := ResolveContext(user)
	if err != nil {
		return nil, err
	}
	return r.For(ctx, user, tenantID)
}

// For builds the context for an explicitly named tenant
func (r *TenantContextResolver) For(ctx context.Context, user *models.User, tenantID string) (*TenantContext, error) {
	role, err := r.roles.RoleOf(ctx, user.ID, tenantID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apierrors.ErrNotMember
	}
	return &TenantContext{User: user, TenantID: tenantID, Role: *role}, nil
}
