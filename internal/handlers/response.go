package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/middleware"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

func init() {
	// Report binding failures under their JSON names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(apierrors.JSONFieldName)
	}
}

// Response is the success envelope shared by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondOK(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data)
}

// bindJSON decodes the request body into dst. Malformed bodies are reported as
// BadRequest, binding rule failures as ValidationError.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			apierrors.RespondWithError(c, apierrors.FromValidator(verrs))
		} else {
			apierrors.RespondWithError(c, apierrors.ErrInvalidBody)
		}
		return false
	}
	return true
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.RespondWithError(c, apierrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

func tenantContext(c *gin.Context) (*services.TenantContext, bool) {
	tc, ok := middleware.GetTenantContext(c)
	if !ok {
		apierrors.RespondWithError(c, apierrors.ErrNoActiveTenant)
		return nil, false
	}
	return tc, true
}
