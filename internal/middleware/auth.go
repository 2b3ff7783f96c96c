package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/metrics"
	"github.com/yukikurage/multitenant-task-api/internal/models"
)

// IdentityResolver turns a bearer token into its user
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, bearer string) (*models.User, error)
}

// RequireAuth checks the bearer token on the Authorization header
func RequireAuth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apierrors.RespondWithError(c, apierrors.ErrUnauthorized)
			return
		}

		user, err := resolver.ResolveIdentity(c.Request.Context(), bearer)
		if err != nil {
			if apierrors.IsKind(err, apierrors.KindAuth) {
				metrics.TokenRejectedCounter.Inc()
			}
			apierrors.Respond(c, err)
			return
		}

		// Store user in context for easy access in handlers
		c.Set(constants.ContextKeyUser, user)
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyBearerToken, bearer)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUser retrieves the authenticated user from context
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(constants.ContextKeyUserID)
	return userID, userID != ""
}

// GetBearerToken retrieves the presented bearer token from context
func GetBearerToken(c *gin.Context) (string, bool) {
	token := c.GetString(constants.ContextKeyBearerToken)
	return token, token != ""
}
