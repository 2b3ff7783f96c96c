package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
)

// TenantService provides business logic for tenant operations.
type TenantService struct {
	store    repository.Store
	enforcer *ScopeEnforcer
}

// NewTenantService creates a new TenantService.
func NewTenantService(store repository.Store, enforcer *ScopeEnforcer) *TenantService {
	return &TenantService{
		store:    store,
		enforcer: enforcer,
	}
}

// CreateTenantInput represents parameters to create a new tenant.
type CreateTenantInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Settings string `json:"settings" validate:"omitempty"`
}

// UpdateTenantInput holds the fields an admin may change.
type UpdateTenantInput struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Settings *string `json:"settings"`
}

// TenantDetail is a tenant with its members, projects and tasks.
type TenantDetail struct {
	Tenant   *models.Tenant
	Members  []models.Membership
	Projects []models.Project
	Tasks    []models.Task
}

func slugFromName(name string) (string, error) {
	slug, err := utils.Slugify(name, constants.SlugFallback)
	if err != nil {
		return "", apierrors.FieldError("name", "cannot produce a slug")
	}
	return slug, nil
}

// ListForUser returns the tenants the user belongs to, with its role in each.
func (s *TenantService) ListForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	memberships, err := s.store.Memberships().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return memberships, nil
}

// Create creates a tenant with a unique slug derived from its name and makes
// the creator its admin. A creator without a current tenant switches to it.
func (s *TenantService) Create(ctx context.Context, creator *models.User, input CreateTenantInput) (*models.Tenant, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	base, err := slugFromName(input.Name)
	if err != nil {
		return nil, err
	}

	var tenant *models.Tenant
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		slug, err := uniqueSlug(ctx, repos.Tenants(), base, "")
		if err != nil {
			return err
		}

		tenant = &models.Tenant{Name: input.Name, Slug: slug, Settings: input.Settings}
		if err := repos.Tenants().Create(ctx, tenant); err != nil {
			return conflictOr(err, "Tenant slug is already taken")
		}

		if _, err := repos.Memberships().Attach(ctx, creator.ID, tenant.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to add creator to tenant: %w", err)
		}

		if !creator.HasActiveTenant() {
			admin := models.RoleAdmin
			if err := repos.Users().SetCurrentTenant(ctx, creator.ID, &tenant.ID, &admin); err != nil {
				return fmt.Errorf("failed to set current tenant: %w", err)
			}
			creator.CurrentTenantID = stringPtr(tenant.ID)
			creator.ActiveRole = &admin
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tenant, nil
}

// Get returns a tenant with its members, projects and tasks.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*TenantDetail, error) {
	tenant, err := s.store.Tenants().FindByID(ctx, tenantID)
	if err != nil {
		return nil, notFoundOr(err, "tenant")
	}

	members, err := s.store.Memberships().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	detail := &TenantDetail{Tenant: tenant, Members: members}
	err = s.enforcer.WithTenantScope(ctx, tenantID, func(scope repository.TenantScope) error {
		projects, err := scope.Projects().List(ctx, repository.ProjectFilter{})
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		tasks, _, err := scope.Tasks().List(ctx, repository.TaskFilter{})
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		detail.Projects = projects
		detail.Tasks = tasks
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// Update changes a tenant's name and settings. A new name regenerates the
// slug, skipping the tenant's own current slug when checking uniqueness.
func (s *TenantService) Update(ctx context.Context, tenantID string, input UpdateTenantInput) (*models.Tenant, error) {
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

	var tenant *models.Tenant
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Tenants().FindByID(ctx, tenantID)
		if err != nil {
			return notFoundOr(err, "tenant")
		}

		if input.Name != nil {
			base, err := slugFromName(*input.Name)
			if err != nil {
				return err
			}
			slug, err := uniqueSlug(ctx, repos.Tenants(), base, existing.ID)
			if err != nil {
				return err
			}
			existing.Name = *input.Name
			existing.Slug = slug
		}
		if input.Settings != nil {
			existing.Settings = *input.Settings
		}

		if err := repos.Tenants().Update(ctx, existing); err != nil {
			return conflictOr(err, "Tenant slug is already taken")
		}
		tenant = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tenant, nil
}

// Delete removes a tenant with its projects, tasks and memberships.
func (s *TenantService) Delete(ctx context.Context, tenantID string) error {
	return s.store.WithTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tenants().FindByID(ctx, tenantID); err != nil {
			return notFoundOr(err, "tenant")
		}
		if err := repos.Tenants().Delete(ctx, tenantID); err != nil {
			return fmt.Errorf("failed to delete tenant: %w", err)
		}
		return nil
	})
}
