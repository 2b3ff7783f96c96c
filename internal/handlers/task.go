package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/dto"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/services"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
)

// TaskHandler serves task endpoints in the caller's current tenant.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

func optionalQuery(c *gin.Context, key string) *string {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	return &value
}

// listTasksInput reads the task filters and pagination from the query string.
// Unparseable page numbers fall back to the defaults.
func listTasksInput(c *gin.Context) services.ListTasksInput {
	params := utils.GetPaginationParams(c)
	return services.ListTasksInput{
		ProjectID: optionalQuery(c, "project_id"),
		Status:    optionalQuery(c, "status"),
		Priority:  optionalQuery(c, "priority"),
		Page:      params.Page,
		Limit:     params.Limit,
	}
}

// ListTasks returns one page of the tasks visible to the caller.
// Non-admins only see tasks assigned to them.
func (h *TaskHandler) ListTasks(c *gin.Context) {
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

// CreateTask creates a task. Admin only.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.CreateTaskInput
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), tc, req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondCreated(c, "Task created", dto.ToTaskDTO(*task))
}

// GetTask returns a task to an admin or its assignee.
func (h *TaskHandler) GetTask(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Task retrieved", dto.ToTaskDTO(*task))
}

// UpdateTask updates a task. The assignee may only change its status.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	var req services.UpdateTaskInput
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), tc, c.Param("id"), req)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	respondOK(c, "Task updated", dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task. Admin only.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	tc, ok := tenantContext(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), tc, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
