package repository

import (
	"context"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormTenantScope binds project and task access to a single tenant.
// No other constructor for the scoped repositories exists, so tenant-owned
// rows cannot be reached without naming the tenant first.
type gormTenantScope struct {
	db       *gorm.DB
	tenantID string
}

// NewTenantScope creates a TenantScope for tenantID
func NewTenantScope(db *gorm.DB, tenantID string) TenantScope {
	return &gormTenantScope{db: db, tenantID: tenantID}
}

func (s *gormTenantScope) TenantID() string {
	return s.tenantID
}

func (s *gormTenantScope) Projects() ProjectRepository {
	return &scopedProjectRepository{db: s.db, tenantID: s.tenantID}
}

func (s *gormTenantScope) Tasks() TaskRepository {
	return &scopedTaskRepository{db: s.db, tenantID: s.tenantID}
}

func (s *gormTenantScope) HasMember(ctx context.Context, userID string) (bool, error) {
	var found []models.Membership
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("tenant_id = ? AND user_id = ?", s.tenantID, userID).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}
