package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/team-todo-api/internal/utils"
)

// Paginate applies pagination to a GORM query. A zero limit returns every row.
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// DueFirst orders tasks by due date with undated tasks last, then by id.
// The CASE keeps the ordering identical on MySQL, Postgres and SQLite.
func DueFirst(db *gorm.DB) *gorm.DB {
	return db.
		Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC").
		Order("tasks.id ASC")
}
