package repository

import (
	"context"

	"github.com/yukikurage/multitenant-task-api/internal/database"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
)

// scopedProjectRepository is a GORM ProjectRepository bound to one tenant
type scopedProjectRepository struct {
	db       *gorm.DB
	tenantID string
}

func (r *scopedProjectRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(database.ForTenant("projects", r.tenantID))
}

// Create stamps the scope's tenant on the project
func (r *scopedProjectRepository) Create(ctx context.Context, project *models.Project) error {
	project.TenantID = r.tenantID
	return r.db.WithContext(ctx).Create(project).Error
}

// FindByID finds a project of the tenant
func (r *scopedProjectRepository) FindByID(ctx context.Context, id string, filter ProjectFilter) (*models.Project, error) {
	var project models.Project
	query := r.applyFilter(r.scoped(ctx), filter)
	if err := query.Where("projects.id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List lists the projects of the tenant
func (r *scopedProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	var projects []models.Project
	query := r.applyFilter(r.scoped(ctx), filter)
	if err := query.Order("projects.created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *scopedProjectRepository) applyFilter(query *gorm.DB, filter ProjectFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}

	if filter.VisibleTo != nil {
		assignedSubQuery := r.db.Model(&models.Task{}).
			Select("1").
			Where("tasks.project_id = projects.id").
			Where("tasks.tenant_id = ?", r.tenantID).
			Where("tasks.assigned_to = ?", *filter.VisibleTo)
		query = query.Where("EXISTS (?)", assignedSubQuery)
	}

	if filter.WithTasks {
		query = query.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			db = db.Scopes(database.ForTenant("tasks", r.tenantID))
			if filter.VisibleTo != nil {
				db = db.Where("tasks.assigned_to = ?", *filter.VisibleTo)
			}
			return db.Order("tasks.created_at DESC")
		}).Preload("Tasks.AssignedUser")
	}

	return query
}

// Update updates the mutable columns of a project. The tenant never changes.
func (r *scopedProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.scoped(ctx).Model(project).
		Select("name", "description", "status", "updated_at").
		Updates(project).Error
}

// Delete deletes a project and its tasks. Callers run it inside Store.WithTx.
func (r *scopedProjectRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)

	if err := db.Scopes(database.ForTenant("tasks", r.tenantID)).
		Where("tasks.project_id = ?", id).
		Delete(&models.Task{}).Error; err != nil {
		return err
	}

	result := r.scoped(ctx).Where("projects.id = ?", id).Delete(&models.Project{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
