package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/team-todo-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskTypeRepository is a GORM implementation of TaskTypeRepository
type GormTaskTypeRepository struct {
	db *gorm.DB
}

// NewTaskTypeRepository creates a new TaskTypeRepository
func NewTaskTypeRepository(db *gorm.DB) TaskTypeRepository {
	return &GormTaskTypeRepository{db: db}
}

func (r *GormTaskTypeRepository) List(ctx context.Context, onlyAccessible bool) ([]models.TaskType, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if onlyAccessible {
		query = query.Where("is_accessible = ?", true)
	}

	var types []models.TaskType
	err := query.Find(&types).Error
	return types, err
}

func (r *GormTaskTypeRepository) FindByID(ctx context.Context, id uint64) (*models.TaskType, error) {
	var taskType models.TaskType
	if err := r.db.WithContext(ctx).First(&taskType, id).Error; err != nil {
		return nil, err
	}
	return &taskType, nil
}

func (r *GormTaskTypeRepository) FindByNormalizedName(ctx context.Context, name string) (*models.TaskType, error) {
	var taskType models.TaskType
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := r.db.WithContext(ctx).Where("LOWER(TRIM(name)) = ?", normalized).First(&taskType).Error; err != nil {
		return nil, err
	}
	return &taskType, nil
}

func (r *GormTaskTypeRepository) Create(ctx context.Context, taskType *models.TaskType) error {
	return r.db.WithContext(ctx).Create(taskType).Error
}

func (r *GormTaskTypeRepository) Update(ctx context.Context, taskType *models.TaskType) error {
	return r.db.WithContext(ctx).Save(taskType).Error
}
