package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/services"
)

// ProjectHandler serves project endpoints in the caller's current tenant.
type ProjectHandler struct {
	projectService *services.ProjectService
	taskService    *services.TaskService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, taskService *services.TaskService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		taskService:    taskService,
	}
}

// ListProjects returns every project to admins, and to other members only the
// projects holding tasks assigned to them.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
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

// CreateProject creates a project. Admin only.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.CreateProjectInput
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), tc, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "Project created", dto.ToProjectDTO(*project))
}

// GetProject returns a project visible to the caller.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Project retrieved", dto.ToProjectDTO(*project))
}

// UpdateProject updates a project. Admin only.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.UpdateProjectInput
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), tc, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Project updated", dto.ToProjectDTO(*project))
}

// DeleteProject deletes a project and its tasks. Admin only.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), tc, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GenerateTasks creates tasks in the project from a free text description
// using the AI task generator. Admin only.
func (h *ProjectHandler) GenerateTasks(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.GenerateTasksInput
	if !bindJSON(c, &req) {
		return
	}

	tasks, err := h.taskService.Generate(c.Request.Context(), tc, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "Tasks generated", gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
		"count": len(tasks),
	})
}
