package database

import (
	"fmt"
	"strings"

	"github.com/yukikurage/multitenant-task-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the tenant-scoping indexes that struct tags do not declare.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		// Scoped project listing
		{&models.Project{}, "idx_projects_tenant_status", []string{"tenant_id", "status"}},

		// Scoped task filtering
		{&models.Task{}, "idx_tasks_tenant_status", []string{"tenant_id", "status"}},
		{&models.Task{}, "idx_tasks_tenant_assignee", []string{"tenant_id", "assigned_to"}},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index", zap.String("index", idx.name), zap.String("table", stmt.Schema.Table))
	}

	return nil
}
