package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

// TenantHandler serves the explicit tenant endpoints under /api/tenants.
// Routes with an :id are guarded by RequireTenantMembership.
type TenantHandler struct {
	tenantService     *services.TenantService
	membershipService *services.MembershipService
	projectService    *services.ProjectService
	taskService       *services.TaskService
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(
	tenantService *services.TenantService,
	membershipService *services.MembershipService,
	projectService *services.ProjectService,
	taskService *services.TaskService,
) *TenantHandler {
	return &TenantHandler{
		tenantService:     tenantService,
		membershipService: membershipService,
		projectService:    projectService,
		taskService:       taskService,
	}
}

// ListTenants returns the tenants of the caller with its role in each.
func (h *TenantHandler) ListTenants(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	memberships, err := h.tenantService.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Tenants retrieved", dto.ToTenantWithRoleDTOs(memberships))
}

// CreateTenant creates a tenant with the caller as its admin.
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateTenantInput
	if !bindJSON(c, &req) {
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), user, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "Tenant created", dto.TenantWithRoleDTO{
		TenantDTO: dto.ToTenantDTO(*tenant),
		Role:      models.RoleAdmin,
	})
}

// GetTenant returns a tenant with its members, projects and tasks.
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	detail, err := h.tenantService.Get(c.Request.Context(), tc.TenantID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Tenant retrieved", dto.ToTenantDetailDTO(*detail.Tenant, tc.Role, detail.Members, detail.Projects, detail.Tasks))
}

// UpdateTenant changes the tenant's name and settings. Admin only.
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.UpdateTenantInput
	if !bindJSON(c, &req) {
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), tc.TenantID, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Tenant updated", dto.ToTenantDTO(*tenant))
}

// DeleteTenant removes the tenant and everything it owns. Admin only.
func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	if err := h.tenantService.Delete(c.Request.Context(), tc.TenantID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers returns the members of the tenant with their roles.
func (h *TenantHandler) ListMembers(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), tc.TenantID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Members retrieved", dto.ToMemberDTOs(members))
}

// CreateMember creates a new account inside the tenant. Admin only.
func (h *TenantHandler) CreateMember(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.CreateMemberInput
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.membershipService.CreateMember(c.Request.Context(), tc.TenantID, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "User created", dto.ToMemberDTO(*member))
}

// AttachMember adds an existing account to the tenant. Admin only.
func (h *TenantHandler) AttachMember(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.AttachMemberInput
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.membershipService.AttachExisting(c.Request.Context(), tc.TenantID, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "Member added", dto.ToMemberDTO(*member))
}

// UpdateMemberRole changes a member's role. Admin only.
func (h *TenantHandler) UpdateMemberRole(c *gin.Context) {
	type UpdateRoleRequest struct {
		Role string `json:"role" binding:"required"`
	}

	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.membershipService.UpdateRole(c.Request.Context(), tc.TenantID, c.Param("user_id"), req.Role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Role updated", dto.ToMemberDTO(*member))
}

// DetachMember removes a member from the tenant. Admins may remove anyone;
// other members may only leave themselves.
func (h *TenantHandler) DetachMember(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	userID := c.Param("user_id")
	if !tc.IsAdmin() && userID != tc.UserID() {
		apierrors.RespondWithError(c, apierrors.ErrAdminRequired)
		return
	}

	result, err := h.membershipService.Detach(c.Request.Context(), tc.TenantID, userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Member removed", gin.H{"user_deleted": result.UserDeleted})
}

// ListProjects returns the tenant's projects visible to the caller.
func (h *TenantHandler) ListProjects(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	projects, err := h.projectService.List(c.Request.Context(), tc)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Projects retrieved", dto.ToProjectDTOs(projects))
}

// ListTasks returns one page of the tenant's tasks visible to the caller.
func (h *TenantHandler) ListTasks(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	page, err := h.taskService.List(c.Request.Context(), tc, listTasksInput(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Tasks retrieved", dto.TaskListResponse{
		Tasks:      dto.ToTaskDTOs(page.Tasks),
		Pagination: page.Pagination,
	})
}
