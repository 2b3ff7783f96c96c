package dto

import (
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
)

// ProjectSummaryDTO is the short form of a project embedded in tasks
type ProjectSummaryDTO struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Status models.ProjectStatus `json:"status"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          string               `json:"id"`
	TenantID    string               `json:"tenant_id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Tasks       []TaskDTO            `json:"tasks,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	ProjectID    string              `json:"project_id"`
	Title        string              `json:"title"`
	Description  *string             `json:"description"`
	Status       models.TaskStatus   `json:"status"`
	Priority     models.TaskPriority `json:"priority"`
	AssignedTo   *string             `json:"assigned_to"`
	DueDate      *time.Time          `json:"due_date"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Project      *ProjectSummaryDTO  `json:"project,omitempty"`
	AssignedUser *UserSummaryDTO     `json:"assigned_user,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		TenantID:    project.TenantID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
	if len(project.Tasks) > 0 {
		dto.Tasks = ToTaskDTOs(project.Tasks)
	}
	return dto
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = ToProjectDTO(p)
	}
	return dtos
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		TenantID:    task.TenantID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		AssignedTo:  task.AssignedTo,
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Only include the project if it was preloaded
	if task.Project.ID != "" {
		dto.Project = &ProjectSummaryDTO{
			ID:     task.Project.ID,
			Name:   task.Project.Name,
			Status: task.Project.Status,
		}
	}

	if task.AssignedUser != nil {
		user := ToUserSummaryDTO(*task.AssignedUser)
		dto.AssignedUser = &user
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = ToTaskDTO(t)
	}
	return dtos
}
