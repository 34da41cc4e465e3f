package repository

import (
	"context"

	"github.com/yukikurage/team-todo-api/internal/database"
	"github.com/yukikurage/team-todo-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Transaction runs fn against a repository bound to a single database transaction
func (r *GormTaskRepository) Transaction(ctx context.Context, fn func(tx TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormTaskRepository{db: tx})
	})
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	// assignments go through the reconciler, never through association saving
	return r.db.WithContext(ctx).Omit("Assignments", "Creator", "Type").Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(ctx, filter).
		Scopes(database.DueFirst, database.Paginate(filter.Pagination)).
		Preload("Type").
		Preload("Assignments").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *GormTaskRepository) filtered(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.CreatedBy != nil {
		query = query.Where("tasks.created_by = ?", *filter.CreatedBy)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID)
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}

	return query
}

// Update writes the mutable columns of task when its stored version still equals task.Version
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	next := task.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"title":        task.Title,
			"description":  task.Description,
			"due_date":     task.DueDate,
			"due_time":     task.DueTime,
			"start_date":   task.StartDate,
			"is_important": task.IsImportant,
			"type_id":      task.TypeID,
			"status":       task.Status,
			"completed_at": task.CompletedAt,
			"is_confirmed": task.IsConfirmed,
			"version":      next,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTask
	}

	task.Version = next
	return nil
}

// Delete removes a task and its assignments when the stored version still equals task.Version
func (r *GormTaskRepository) Delete(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		result := tx.Where("version = ?", task.Version).Delete(&models.Task{}, task.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleTask
		}
		return nil
	})
}

// ListAssignments returns the current assignments of a task
func (r *GormTaskRepository) ListAssignments(ctx context.Context, taskID uint64) ([]models.TaskAssignment, error) {
	var rows []models.TaskAssignment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindAssignmentsByIDs returns the rows of taskID whose ids are in ids
func (r *GormTaskRepository) FindAssignmentsByIDs(ctx context.Context, taskID uint64, ids []uint64) ([]models.TaskAssignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []models.TaskAssignment
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND id IN ?", taskID, ids).
		Find(&rows).Error
	return rows, err
}

// ExistingActiveUserIDs returns the subset of ids owned by users that are not soft-deleted
func (r *GormTaskRepository) ExistingActiveUserIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []uint64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error
	return existing, err
}

// AddAssignments inserts new assignment rows
func (r *GormTaskRepository) AddAssignments(ctx context.Context, rows []models.TaskAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Task", "User", "Assigner").Create(&rows).Error
}

// RemoveAssignments deletes the given assignment rows
func (r *GormTaskRepository) RemoveAssignments(ctx context.Context, rows []models.TaskAssignment) error {
	if len(rows) == 0 {
		return nil
	}

	ids := make([]uint64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.TaskAssignment{}).Error
}

// TaskTypeExists reports whether a task type with the given id exists
func (r *GormTaskRepository) TaskTypeExists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskType{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
