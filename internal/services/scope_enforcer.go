package services

import (
	"context"
	"fmt"

	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
)

// ScopeEnforcer is the gate to tenant-owned data
type ScopeEnforcer struct {
	store repository.Store
	roles *RoleResolver
}

// NewScopeEnforcer creates a ScopeEnforcer
func NewScopeEnforcer(store repository.Store) *ScopeEnforcer {
	return &ScopeEnforcer{store: store, roles: NewRoleResolver(store)}
}

// WithTenantScope runs fn in one transaction with repositories restricted to tenantID
func (e *ScopeEnforcer) WithTenantScope(ctx context.Context, tenantID string, fn func(scope repository.TenantScope) error) error {
	return e.store.WithTx(ctx, func(repos repository.Repositories) error {
		return fn(repos.Scoped(tenantID))
	})
}

// AssertMembership fails with a ForbiddenError unless userID belongs to tenantID
func (e *ScopeEnforcer) AssertMembership(ctx context.Context, userID, tenantID string) error {
	role, err := e.roles.RoleOf(ctx, userID, tenantID)
	if err != nil {
		return err
	}
	if role == nil {
		return apierrors.ErrNotMember
	}
	return nil
}

// AssertAdmin fails with a ForbiddenError unless userID administers tenantID
func (e *ScopeEnforcer) AssertAdmin(ctx context.Context, userID, tenantID string) error {
	role, err := e.roles.RoleOf(ctx, userID, tenantID)
	if err != nil {
		return err
	}
	if role == nil {
		return apierrors.ErrNotMember
	}
	if *role != models.RoleAdmin {
		return apierrors.ErrAdminRequired
	}
	return nil
}

// AssertAssignable fails with a ValidationError unless userID belongs to tenantID
func (e *ScopeEnforcer) AssertAssignable(ctx context.Context, tenantID, userID string) error {
	return e.WithTenantScope(ctx, tenantID, func(scope repository.TenantScope) error {
		return assertAssignableIn(ctx, scope, userID)
	})
}

// assertAssignableIn checks assignability inside an open tenant scope. The
// membership stays locked until the scope commits, so the assignee cannot be
// detached between the check and the write.
func assertAssignableIn(ctx context.Context, scope repository.TenantScope, userID string) error {
	member, err := scope.HasMember(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return apierrors.FieldError("assigned_to", "user is not a member of this tenant")
	}
	return nil
}
