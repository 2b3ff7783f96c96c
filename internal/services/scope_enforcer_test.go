package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
)

func TestScopeEnforcer_Assertions(t *testing.T) {
	svc, store := newTestServices(t, Options{})
	ctx := context.Background()
	enforcer := NewScopeEnforcer(store)

	acme := registerTenant(t, svc, "Acme", "admin@example.com")
	outsider := registerTenant(t, svc, "Globex", "outsider@example.com")
	member, err := svc.Memberships.CreateMember(ctx, acme.Tenant.ID, CreateMemberInput{
		Name:     "Member",
		Email:    "member@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, member.Role)

	require.NoError(t, enforcer.AssertMembership(ctx, member.UserID, acme.Tenant.ID))
	require.ErrorIs(t, enforcer.AssertMembership(ctx, outsider.User.ID, acme.Tenant.ID), apierrors.ErrNotMember)

	require.NoError(t, enforcer.AssertAdmin(ctx, acme.User.ID, acme.Tenant.ID))
	require.ErrorIs(t, enforcer.AssertAdmin(ctx, member.UserID, acme.Tenant.ID), apierrors.ErrAdminRequired)
	require.ErrorIs(t, enforcer.AssertAdmin(ctx, outsider.User.ID, acme.Tenant.ID), apierrors.ErrNotMember)

	require.NoError(t, enforcer.AssertAssignable(ctx, acme.Tenant.ID, member.UserID))
	requireKind(t, enforcer.AssertAssignable(ctx, acme.Tenant.ID, outsider.User.ID), apierrors.KindValidation)
}

func TestRoleResolver_ActiveRole(t *testing.T) {
	svc, store := newTestServices(t, Options{})
	ctx := context.Background()
	roles := NewRoleResolver(store)

	acme := registerTenant(t, svc, "Acme", "admin@example.com")

	isAdmin, err := roles.IsAdmin(ctx, acme.User)
	require.NoError(t, err)
	require.True(t, isAdmin)

	detached := *acme.User
	detached.CurrentTenantID = nil
	role, err := roles.ActiveRole(ctx, &detached)
	require.NoError(t, err)
	require.Nil(t, role)

	isAdmin, err = roles.IsAdmin(ctx, &detached)
	require.NoError(t, err)
	require.False(t, isAdmin)
}

func TestResolveContext(t *testing.T) {
	_, err := ResolveContext(nil)
	require.ErrorIs(t, err, apierrors.ErrNoActiveTenant)

	_, err = ResolveContext(&models.User{})
	require.ErrorIs(t, err, apierrors.ErrNoActiveTenant)

	tenantID := "tenant-1"
	got, err := ResolveContext(&models.User{CurrentTenantID: &tenantID})
	require.NoError(t, err)
	require.Equal(t, tenantID, got)
}

func TestTenantContextResolver_RejectsStalePointer(t *testing.T) {
	svc, _ := newTestServices(t, Options{})
	ctx := context.Background()
	acme := registerTenant(t, svc, "Acme", "admin@example.com")
	globex := registerTenant(t, svc, "Globex", "other@example.com")

	stale := *acme.User
	stale.CurrentTenantID = &globex.Tenant.ID
	_, err := svc.Contexts.Resolve(ctx, &stale)
	require.ErrorIs(t, err, apierrors.ErrNotMember)

	tc, err := svc.Contexts.Resolve(ctx, acme.User)
	require.NoError(t, err)
	require.True(t, tc.IsAdmin())
	require.Equal(t, acme.Tenant.ID, tc.TenantID)
}
