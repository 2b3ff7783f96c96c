package services

import (
	"context"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
)

// ProjectService handles project business logic inside one tenant.
type ProjectService struct {
	enforcer *ScopeEnforcer
}

// NewProjectService creates a new ProjectService
func NewProjectService(enforcer *ScopeEnforcer) *ProjectService {
	return &ProjectService{enforcer: enforcer}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=active completed archived"`
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=active completed archived"`
}

// visibility returns the filter that limits non-admins to projects holding their tasks
func visibility(tc *TenantContext) repository.ProjectFilter {
	filter := repository.ProjectFilter{WithTasks: true}
	if !tc.IsAdmin() {
		userID := tc.UserID()
		filter.VisibleTo = &userID
	}
	return filter
}

// List returns the projects visible to the caller
func (s *ProjectService) List(ctx context.Context, tc *TenantContext) ([]models.Project, error) {
	var projects []models.Project
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		found, err := scope.Projects().List(ctx, visibility(tc))
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		projects = found
		return nil
	})
	return projects, err
}

// Get returns a project visible to the caller
func (s *ProjectService) Get(ctx context.Context, tc *TenantContext, id string) (*models.Project, error) {
	var project *models.Project
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		found, err := scope.Projects().FindByID(ctx, id, visibility(tc))
		if err != nil {
			return notFoundOr(err, "project")
		}
		project = found
		return nil
	})
	return project, err
}

// Create creates a project in the caller's tenant
func (s *ProjectService) Create(ctx context.Context, tc *TenantContext, input CreateProjectInput) (*models.Project, error) {
	if !tc.IsAdmin() {
		return nil, apierrors.ErrAdminRequired
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		Status:      models.ProjectStatus(input.Status),
	}
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		if err := scope.Projects().Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Update updates a project of the caller's tenant
func (s *ProjectService) Update(ctx context.Context, tc *TenantContext, id string, input UpdateProjectInput) (*models.Project, error) {
	if !tc.IsAdmin() {
		return nil, apierrors.ErrAdminRequired
	}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, apierrors.FieldError("name", "is required")
		}
		input.Name = &trimmed
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		found, err := scope.Projects().FindByID(ctx, id, repository.ProjectFilter{})
		if err != nil {
			return notFoundOr(err, "project")
		}

		if input.Name != nil {
			found.Name = *input.Name
		}
		if input.Description != nil {
			found.Description = input.Description
		}
		if input.Status != nil {
			found.Status = models.ProjectStatus(*input.Status)
		}

		if err := scope.Projects().Update(ctx, found); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		project = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Delete deletes a project and its tasks
func (s *ProjectService) Delete(ctx context.Context, tc *TenantContext, id string) error {
	if !tc.IsAdmin() {
		return apierrors.ErrAdminRequired
	}
	return s.enforcer.WithTenantScope(ctx, tc.TenantID, func(scope repository.TenantScope) error {
		if err := scope.Projects().Delete(ctx, id); err != nil {
			return notFoundOr(err, "project")
		}
		return nil
	})
}
