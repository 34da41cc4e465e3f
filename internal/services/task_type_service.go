package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/team-todo-api/internal/constants"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"gorm.io/gorm"
)

// TaskTypeService manages the catalogue of task types.
type TaskTypeService struct {
	typeRepo repository.TaskTypeRepository
	log      *slog.Logger
}

func NewTaskTypeService(typeRepo repository.TaskTypeRepository, log *slog.Logger) *TaskTypeService {
	return &TaskTypeService{typeRepo: typeRepo, log: log}
}

func (s *TaskTypeService) List(ctx context.Context, onlyAccessible bool) ([]models.TaskType, error) {
	types, err := s.typeRepo.List(ctx, onlyAccessible)
	if err != nil {
		return nil, fmt.Errorf("failed to list task types: %w", err)
	}
	return types, nil
}

// Create adds an accessible task type. Names are unique ignoring case and surrounding spaces.
func (s *TaskTypeService) Create(ctx context.Context, name string, actor Actor) (*models.TaskType, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}
	name, err := s.checkName(ctx, name, 0)
	if err != nil {
		return nil, err
	}

	taskType := &models.TaskType{Name: name, IsAccessible: true}
	if err := s.typeRepo.Create(ctx, taskType); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrTaskTypeExists
		}
		return nil, fmt.Errorf("failed to create task type: %w", err)
	}

	s.log.Info("task type created", "task_type_id", taskType.ID, "name", taskType.Name)
	return taskType, nil
}

func (s *TaskTypeService) Rename(ctx context.Context, id uint64, name string, actor Actor) (*models.TaskType, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}
	taskType, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err = s.checkName(ctx, name, id)
	if err != nil {
		return nil, err
	}

	taskType.Name = name
	if err := s.typeRepo.Update(ctx, taskType); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrTaskTypeExists
		}
		return nil, fmt.Errorf("failed to update task type: %w", err)
	}
	return taskType, nil
}

// SetAccessibility hides or shows a type in the performer-facing list.
func (s *TaskTypeService) SetAccessibility(ctx context.Context, id uint64, accessible bool, actor Actor) (*models.TaskType, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}
	taskType, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if taskType.IsAccessible == accessible {
		return taskType, nil
	}

	taskType.IsAccessible = accessible
	if err := s.typeRepo.Update(ctx, taskType); err != nil {
		return nil, fmt.Errorf("failed to update task type: %w", err)
	}
	s.log.Info("task type accessibility changed", "task_type_id", id, "accessible", accessible)
	return taskType, nil
}

func (s *TaskTypeService) find(ctx context.Context, id uint64) (*models.TaskType, error) {
	taskType, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskTypeNotFound
		}
		return nil, fmt.Errorf("failed to find task type: %w", err)
	}
	return taskType, nil
}

// checkName trims name and rejects it when another type (not selfID) already uses it.
func (s *TaskTypeService) checkName(ctx context.Context, name string, selfID uint64) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrTaskTypeNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxTaskTypeLength {
		return "", ErrTaskTypeNameTooLong
	}

	existing, err := s.typeRepo.FindByNormalizedName(ctx, name)
	switch {
	case err == nil:
		if existing.ID != selfID {
			return "", ErrTaskTypeExists
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", fmt.Errorf("failed to check task type name: %w", err)
	}
	return name, nil
}
