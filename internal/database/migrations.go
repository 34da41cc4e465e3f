package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// AddIndexes creates the composite indexes the list and fanout queries rely on.
func AddIndexes(db *gorm.DB, log *slog.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// assigned-to listings and audience resolution
		{"task_assignments", "idx_task_assignments_task_user", "task_id, user_id"},
		{"task_assignments", "idx_task_assignments_user_task", "user_id, task_id"},

		// created-by listings ordered by due date
		{"tasks", "idx_tasks_created_by_due", "created_by, due_date"},

		// hierarchy traversal over active users
		{"users", "idx_users_created_by_deleted", "created_by, deleted_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
