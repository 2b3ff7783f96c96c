package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/metrics"
	"github.com/yukikurage/multitenant-task-api/internal/middleware"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates a tenant and its first admin, and signs the admin in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		metrics.RecordOutcome(metrics.RegisterCounter, "invalid")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		metrics.RecordOutcome(metrics.RegisterCounter, outcomeOf(err))
		apierrors.Respond(c, err)
		return
	}

	metrics.RecordOutcome(metrics.RegisterCounter, "success")
	respondCreated(c, "Registration successful",
		dto.ToAuthResponse(*result.User, *result.Tenant, result.Token, result.ExpiresAt))
}

// Login authenticates a user against a tenant and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		metrics.RecordOutcome(metrics.LoginCounter, "invalid")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		metrics.RecordOutcome(metrics.LoginCounter, outcomeOf(err))
		apierrors.Respond(c, err)
		return
	}

	metrics.RecordOutcome(metrics.LoginCounter, "success")
	respondOK(c, "Login successful",
		dto.ToAuthResponse(*result.User, *result.Tenant, result.Token, result.ExpiresAt))
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	bearer, ok := middleware.GetBearerToken(c)
	if !ok {
		apierrors.RespondWithError(c, apierrors.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), bearer); err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Logged out successfully", nil)
}

// LogoutAll revokes every token of the caller.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), user); err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Logged out from all sessions", nil)
}

// Me returns the authenticated user with its current tenant and memberships.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), user)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Profile retrieved", dto.ToMeResponse(*profile.User, profile.Tenant, profile.Role, profile.Memberships))
}

// SwitchTenant changes the caller's current tenant.
func (h *AuthHandler) SwitchTenant(c *gin.Context) {
	type SwitchTenantRequest struct {
		TenantID string `json:"tenant_id" binding:"required"`
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req SwitchTenantRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.authService.SwitchTenant(c.Request.Context(), user, req.TenantID)
	if err != nil {
		metrics.RecordOutcome(metrics.TenantSwitchCounter, outcomeOf(err))
		apierrors.Respond(c, err)
		return
	}

	metrics.RecordOutcome(metrics.TenantSwitchCounter, "success")
	respondOK(c, "Tenant switched", dto.ToUserDTO(*updated))
}

// outcomeOf labels a failure for the outcome counters.
func outcomeOf(err error) string {
	switch apierrors.KindOf(err) {
	case apierrors.KindValidation, apierrors.KindBadRequest:
		return "invalid"
	case apierrors.KindConflict:
		return "conflict"
	case apierrors.KindAuth:
		return "invalid_credentials"
	case apierrors.KindForbidden:
		return "forbidden"
	case apierrors.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}
