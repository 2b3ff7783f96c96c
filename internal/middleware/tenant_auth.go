package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/metrics"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

// TenantResolver builds the tenant context of a request
type TenantResolver interface {
	Resolve(ctx context.Context, user *models.User) (*services.TenantContext, error)
	For(ctx context.Context, user *models.User, tenantID string) (*services.TenantContext, error)
}

// RequireTenantContext resolves the caller's current tenant and role. It must
// run after RequireAuth.
func RequireTenantContext(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.RespondWithError(c, apierrors.ErrUnauthorized)
			return
		}

		tc, err := resolver.Resolve(c.Request.Context(), user)
		if err != nil {
			recordDenied(err)
			apierrors.Respond(c, err)
			return
		}

		c.Set(constants.ContextKeyTenantContext, tc)
		c.Next()
	}
}

// RequireTenantMembership resolves the tenant named by the :id path
// parameter, rejecting callers that are not members of it.
func RequireTenantMembership(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.RespondWithError(c, apierrors.ErrUnauthorized)
			return
		}

		tc, err := resolver.For(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			recordDenied(err)
			apierrors.Respond(c, err)
			return
		}

		c.Set(constants.ContextKeyTenantContext, tc)
		c.Next()
	}
}

// RequireAdmin checks that the resolved tenant context carries the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := GetTenantContext(c)
		if !ok {
			apierrors.RespondWithError(c, apierrors.ErrNoActiveTenant)
			return
		}

		if !tc.IsAdmin() {
			metrics.RecordDenied("admin_required")
			apierrors.RespondWithError(c, apierrors.ErrAdminRequired)
			return
		}

		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from context
func GetTenantContext(c *gin.Context) (*services.TenantContext, bool) {
	value, exists := c.Get(constants.ContextKeyTenantContext)
	if !exists {
		return nil, false
	}
	tc, ok := value.(*services.TenantContext)
	return tc, ok && tc != nil
}

func recordDenied(err error) {
	apiErr, ok := apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindForbidden {
		return
	}
	metrics.RecordDenied(apiErr.Code)
}
