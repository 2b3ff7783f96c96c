package repository

import (
	"context"

	"github.com/yukikurage/multitenant-task-api/internal/database"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
	"gorm.io/gorm"
)

// scopedTaskRepository is a GORM TaskRepository bound to one tenant
type scopedTaskRepository struct {
	db       *gorm.DB
	tenantID string
}

func (r *scopedTaskRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(database.ForTenant("tasks", r.tenantID))
}

// Create stamps the scope's tenant on the task. A project outside the tenant
// is reported as gorm.ErrRecordNotFound.
func (r *scopedTaskRepository) Create(ctx context.Context, task *models.Task) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).
		Scopes(database.ForTenant("projects", r.tenantID)).
		Where("projects.id = ?", task.ProjectID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}

	task.TenantID = r.tenantID
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task of the tenant with its project and assignee
func (r *scopedTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.scoped(ctx).
		Preload("Project").
		Preload("AssignedUser").
		Where("tasks.id = ?", id).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *scopedTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.scoped(ctx).Model(&models.Task{})

	// Apply filters
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Project").Preload("AssignedUser").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates the mutable columns of a task. The tenant never changes.
func (r *scopedTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.scoped(ctx).Model(task).
		Select("project_id", "assigned_to", "title", "description", "status", "priority", "due_date", "updated_at").
		Updates(task).Error
}

// Delete deletes a task of the tenant
func (r *scopedTaskRepository) Delete(ctx context.Context, id string) error {
	result := r.scoped(ctx).Where("tasks.id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UnassignUser clears assigned_to on every task of the tenant held by userID
func (r *scopedTaskRepository) UnassignUser(ctx context.Context, userID string) error {
	return r.scoped(ctx).Model(&models.Task{}).
		Where("tasks.assigned_to = ?", userID).
		Update("assigned_to", nil).Error
}
