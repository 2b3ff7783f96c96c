package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/multitenant-task-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// ForTenant restricts a query on a tenant-owned table to one tenant.
// The column is qualified so the scope stays unambiguous inside joins.
func ForTenant(table, tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".tenant_id = ?", tenantID)
	}
}
