package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

// UserHandler manages the members of the caller's current tenant. Every
// route is admin only.
type UserHandler struct {
	membershipService *services.MembershipService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(membershipService *services.MembershipService) *UserHandler {
	return &UserHandler{
		membershipService: membershipService,
	}
}

// ListUsers returns the members of the current tenant.
func (h *UserHandler) ListUsers(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), tc.TenantID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Users retrieved", dto.ToMemberDTOs(members))
}

// InviteUser creates an account in the current tenant with the user role.
func (h *UserHandler) InviteUser(c *gin.Context) {
	type InviteUserRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req InviteUserRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.membershipService.CreateMember(c.Request.Context(), tc.TenantID, services.CreateMemberInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     string(models.RoleUser),
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "User invited", dto.ToMemberDTO(*member))
}

// RemoveUser detaches a member from the current tenant. Admins cannot
// remove themselves here.
func (h *UserHandler) RemoveUser(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	userID := c.Param("id")
	if userID == tc.UserID() {
		apierrors.RespondWithError(c, services.ErrCannotRemoveSelf)
		return
	}

	result, err := h.membershipService.Detach(c.Request.Context(), tc.TenantID, userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "User removed", gin.H{"user_deleted": result.UserDeleted})
}
