package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotAssigned        = apierrors.Forbidden(apierrors.ErrCodeInsufficientPermissions, "You can only access tasks assigned to you")
	ErrStatusOnlyUpdate       = apierrors.Forbidden(apierrors.ErrCodeInsufficientPermissions, "You can only change the status of your tasks")
	ErrAIServiceNotConfigured = apierrors.NewAPIError(apierrors.KindBadRequest, apierrors.ErrCodeServiceUnavailable, "AI task generation is not configured")
	ErrAINoTasksGenerated     = apierrors.NewAPIError(apierrors.KindBadRequest, apierrors.ErrCodeInvalidOperation, "AI did not generate any tasks")
)

// TaskService handles task business logic inside one tenant
type TaskService struct {
	enforcer  *ScopeEnforcer
	generator TaskGenerator
}

// NewTaskService creates a new TaskService. generator may be nil.
func NewTaskService(enforcer *ScopeEnforcer, generator TaskGenerator) *TaskService {
	return &TaskService{
		enforcer:  enforcer,
		generator: generator,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID *string `json:"project_id"`
	Status    *string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority  *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Page      int     `json:"page"`
	Limit     int     `json:"limit"`
}

// TaskPage is one page of tasks
type TaskPage struct {
	Tasks      []models.Task
	Pagination utils.PaginationResponse
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   string     `json:"project_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description *string    `json:"description"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskInput represents input for updating a task. An empty AssignedTo
// unassigns the task.
type UpdateTaskInput struct {
	ProjectID    *string    `json:"project_id"`
	Title        *string    `json:"title" validate:"omitempty,max=255"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo   *string    `json:"assigned_to"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

func (in UpdateTaskInput) onlyStatus() bool {
	return in.ProjectID == nil && in.Title == nil && in.Description == nil &&
		in.Priority == nil && in.AssignedTo == nil && in.DueDate == nil && !in.ClearDueDate
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text       string  `json:"text" validate:"required,max=10000"`
	AssignedTo *string `json:"assigned_to"`
}

// List returns one page of the tasks visible to the caller. Non-admins only
// see tasks assigned to them.
func (s *TaskService) List(ctx context.Context, tc *TenantContext, input ListTasksInput) (*TaskPage, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	params := utils.NewPaginationParams(input.Page, input.Limit)
	filter := repository.TaskFilter{
		ProjectID: input.ProjectID,
		Page:      params.Page,
		PageSize:  params.Limit,
	}
	if input.Status != nil {
		status := models.TaskStatus(*input.Status)
		filter.Status = &status
	}
	if input.Priority != nil {
		priority := models.TaskPriority(*input.Priority)
		filter.Priority = &priority
	}
	if !tc.IsAdmin() {
		userID := tc.UserID()
		filter.AssignedTo = &userID
	}

	page := &TaskPage{}
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		tasks, total, err := scope.Tasks().List(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		page.Tasks = tasks
		page.Pagination = params.Response(total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Get returns a task the caller may see
func (s *TaskService) Get(ctx context.Context, tc *TenantContext, id string) (*models.Task, error) {
	var task *models.Task
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		found, err := scope.Tasks().FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "task")
		}
		if !tc.IsAdmin() && !found.IsAssignedTo(tc.UserID()) {
			return ErrTaskNotAssigned
		}
		task = found
		return nil
	})
	return task, err
}

// Create creates a task in a project of the caller's tenant
func (s *TaskService) Create(ctx context.Context, tc *TenantContext, input CreateTaskInput) (*models.Task, error) {
	if !tc.IsAdmin() {
		return nil, apierrors.ErrAdminRequired
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil && *input.AssignedTo == "" {
		input.AssignedTo = nil
	}

	task := &models.Task{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.TaskStatus(input.Status),
		Priority:    models.TaskPriority(input.Priority),
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
	}

	var created *models.Task
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		if task.AssignedTo != nil {
			if err := assertAssignableIn(ctx, scope, *task.AssignedTo); err != nil {
				return err
			}
		}
		if err := scope.Tasks().Create(ctx, task); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.FieldError("project_id", "project not found in this tenant")
			}
			return fmt.Errorf("failed to create task: %w", err)
		}
		reloaded, err := scope.Tasks().FindByID(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to reload task: %w", err)
		}
		created = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update changes a task. Admins may change every field; the assignee may
// only change the status.
func (s *TaskService) Update(ctx context.Context, tc *TenantContext, id string, input UpdateTaskInput) (*models.Task, error) {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return nil, apierrors.FieldError("title", "is required")
		}
		input.Title = &trimmed
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !tc.IsAdmin() && !input.onlyStatus() {
		return nil, ErrStatusOnlyUpdate
	}

	var updated *models.Task
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		task, err := scope.Tasks().FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "task")
		}
		if !tc.IsAdmin() && !task.IsAssignedTo(tc.UserID()) {
			return ErrTaskNotAssigned
		}

		if input.ProjectID != nil && *input.ProjectID != task.ProjectID {
			if _, err := scope.Projects().FindByID(ctx, *input.ProjectID, repository.ProjectFilter{}); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierrors.FieldError("project_id", "project not found in this tenant")
				}
				return fmt.Errorf("failed to find project: %w", err)
			}
			task.ProjectID = *input.ProjectID
		}
		if input.Title != nil {
			task.Title = *input.Title
		}
		if input.Description != nil {
			task.Description = input.Description
		}
		if input.Status != nil {
			task.Status = models.TaskStatus(*input.Status)
		}
		if input.Priority != nil {
			task.Priority = models.TaskPriority(*input.Priority)
		}
		if input.AssignedTo != nil {
			if *input.AssignedTo == "" {
				task.AssignedTo = nil
			} else {
				if err := assertAssignableIn(ctx, scope, *input.AssignedTo); err != nil {
					return err
				}
				task.AssignedTo = input.AssignedTo
			}
		}
		if input.ClearDueDate {
			task.DueDate = nil
		} else if input.DueDate != nil {
			task.DueDate = input.DueDate
		}

		task.Project = models.Project{}
		task.AssignedUser = nil
		if err := scope.Tasks().Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		reloaded, err := scope.Tasks().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to reload task: %w", err)
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete deletes a task
func (s *TaskService) Delete(ctx context.Context, tc *TenantContext, id string) error {
	if !tc.IsAdmin() {
		return apierrors.ErrAdminRequired
	}
	return s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		if err := scope.Tasks().Delete(ctx, id); err != nil {
			return notFoundOr(err, "task")
		}
		return nil
	})
}

// Generate asks the task generator for tasks described in free text and
// creates them in projectID.
func (s *TaskService) Generate(ctx context.Context, tc *TenantContext, projectID string, input GenerateTasksInput) ([]models.Task, error) {
	if !tc.IsAdmin() {
		return nil, apierrors.ErrAdminRequired
	}
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil && *input.AssignedTo == "" {
		input.AssignedTo = nil
	}
	if input.AssignedTo != nil {
		if err := s.enforcer.AssertAssignable(ctx, tc.TenantID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	generated, err := s.generator.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	cutoff := timeNow().Add(-24 * time.Hour)
	valid := make([]GeneratedTask, 0, len(generated))
	for _, g := range generated {
		if strings.TrimSpace(g.Title) == "" {
			continue
		}
		if g.DueDate != nil && g.DueDate.Before(cutoff) {
			g.DueDate = nil
		}
		valid = append(valid, g)
		if len(valid) == constants.MaxAIGeneratedTasks {
			break
		}
	}
	if len(valid) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	tasks := make([]models.Task, 0, len(valid))
	err = s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		// the assignee may have been detached while the generator ran
		if input.AssignedTo != nil {
			if err := assertAssignableIn(ctx, scope, *input.AssignedTo); err != nil {
				return err
			}
		}
		for _, g := range valid {
			task := models.Task{
				ProjectID:  projectID,
				Title:      strings.TrimSpace(g.Title),
				AssignedTo: input.AssignedTo,
				DueDate:    g.DueDate,
			}
			if g.Description != "" {
				task.Description = stringPtr(g.Description)
			}
			if err := scope.Tasks().Create(ctx, &task); err != nil {
				return notFoundOr(err, "project")
			}
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
