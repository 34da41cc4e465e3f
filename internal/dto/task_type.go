package dto

import (
	"github.com/yukikurage/team-todo-api/internal/models"
)

// TaskTypeDTO represents a task type in API responses
type TaskTypeDTO struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	IsAccessible bool   `json:"is_accessible"`
}

// TaskTypeRequest is the body for creating or renaming a task type
type TaskTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

// TaskTypeAccessRequest toggles whether a task type is offered to users
type TaskTypeAccessRequest struct {
	IsAccessible *bool `json:"is_accessible" binding:"required"`
}

// ToTaskTypeDTO converts a TaskType model to TaskTypeDTO
func ToTaskTypeDTO(t models.TaskType) TaskTypeDTO {
	return TaskTypeDTO{ID: t.ID, Name: t.Name, IsAccessible: t.IsAccessible}
}

// ToTaskTypeDTOs converts a slice of task types
func ToTaskTypeDTOs(types []models.TaskType) []TaskTypeDTO {
	out := make([]TaskTypeDTO, len(types))
	for i, t := range types {
		out[i] = ToTaskTypeDTO(t)
	}
	return out
}
