package dto

import (
	"time"

	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/services"
)

// AssignmentDeltaRequest is one requested change to a task's assignees
type AssignmentDeltaRequest struct {
	AssignmentID *uint64 `json:"assignment_id"`
	UserID       uint64  `json:"user_id"`
	ToDelete     bool    `json:"to_delete"`
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Title       string                   `json:"title" binding:"required"`
	Description string                   `json:"description"`
	DueDate     *time.Time               `json:"due_date"`
	DueTime     *string                  `json:"due_time"`
	StartDate   *time.Time               `json:"start_date"`
	IsImportant bool                     `json:"is_important"`
	TypeID      *uint64                  `json:"type_id"`
	Assignments []AssignmentDeltaRequest `json:"assignments"`
}

// UpdateTaskRequest represents the request body for updating a task.
// Omitted fields keep their value; the clear_* flags null out optional ones.
type UpdateTaskRequest struct {
	Title          *string                  `json:"title"`
	Description    *string                  `json:"description"`
	DueDate        *time.Time               `json:"due_date"`
	ClearDueDate   bool                     `json:"clear_due_date"`
	DueTime        *string                  `json:"due_time"`
	ClearDueTime   bool                     `json:"clear_due_time"`
	StartDate      *time.Time               `json:"start_date"`
	ClearStartDate bool                     `json:"clear_start_date"`
	IsImportant    *bool                    `json:"is_important"`
	TypeID         *uint64                  `json:"type_id"`
	ClearType      bool                     `json:"clear_type"`
	Status         *bool                    `json:"status"`
	Version        *uint64                  `json:"version"`
	Assignments    []AssignmentDeltaRequest `json:"assignments"`
}

// SetConfirmedRequest represents the request body for the confirmation flag
type SetConfirmedRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}

// UserSummaryDTO is the short form of a user embedded in other resources
type UserSummaryDTO struct {
	ID        uint64 `json:"id"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname,omitempty"`
	Login     string `json:"login"`
}

// TaskAssignmentDTO represents a task assignment in API responses
type TaskAssignmentDTO struct {
	ID         uint64          `json:"id"`
	UserID     uint64          `json:"user_id"`
	AssignedAt time.Time       `json:"assigned_at"`
	AssignedBy *uint64         `json:"assigned_by"`
	User       *UserSummaryDTO `json:"user,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     *time.Time          `json:"due_date"`
	DueTime     *string             `json:"due_time"`
	StartDate   *time.Time          `json:"start_date"`
	IsImportant bool                `json:"is_important"`
	TypeID      *uint64             `json:"type_id"`
	Status      bool                `json:"status"`
	IsConfirmed bool                `json:"is_confirmed"`
	CompletedAt *time.Time          `json:"completed_at"`
	CreatedBy   uint64              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Version     uint64              `json:"version"`
	Creator     *UserSummaryDTO     `json:"creator,omitempty"`
	Type        *TaskTypeDTO        `json:"type,omitempty"`
	Assignments []TaskAssignmentDTO `json:"assignments"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// Conversion functions

// ToAssignmentDeltas converts request deltas to service deltas
func ToAssignmentDeltas(reqs []AssignmentDeltaRequest) []services.AssignmentDelta {
	if len(reqs) == 0 {
		return nil
	}
	deltas := make([]services.AssignmentDelta, len(reqs))
	for i, r := range reqs {
		deltas[i] = services.AssignmentDelta{
			AssignmentID: r.AssignmentID,
			UserID:       r.UserID,
			ToDelete:     r.ToDelete,
		}
	}
	return deltas
}

// ToInput converts the request to service input
func (r CreateTaskRequest) ToInput() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		DueTime:     r.DueTime,
		StartDate:   r.StartDate,
		IsImportant: r.IsImportant,
		TypeID:      r.TypeID,
	}
}

// ToInput converts the request to service input
func (r UpdateTaskRequest) ToInput() services.UpdateTaskInput {
	return services.UpdateTaskInput{
		Title:           r.Title,
		Description:     r.Description,
		DueDate:         r.DueDate,
		ClearDueDate:    r.ClearDueDate,
		DueTime:         r.DueTime,
		ClearDueTime:    r.ClearDueTime,
		StartDate:       r.StartDate,
		ClearStartDate:  r.ClearStartDate,
		IsImportant:     r.IsImportant,
		TypeID:          r.TypeID,
		ClearType:       r.ClearType,
		Status:          r.Status,
		ExpectedVersion: r.Version,
	}
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:        user.ID,
		LastName:  user.LastName,
		FirstName: user.FirstName,
		Surname:   user.Surname,
		Login:     user.Login,
	}
}

// ToTaskAssignmentDTO converts a TaskAssignment model to TaskAssignmentDTO
func ToTaskAssignmentDTO(a models.TaskAssignment) TaskAssignmentDTO {
	dto := TaskAssignmentDTO{
		ID:         a.ID,
		UserID:     a.UserID,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
	}

	// Include user if preloaded
	if a.User.ID != 0 {
		user := ToUserSummaryDTO(a.User)
		dto.User = &user
	}

	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		DueTime:     task.DueTime,
		StartDate:   task.StartDate,
		IsImportant: task.IsImportant,
		TypeID:      task.TypeID,
		Status:      task.Status,
		IsConfirmed: task.IsConfirmed,
		CompletedAt: task.CompletedAt,
		CreatedBy:   task.CreatorID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Version:     task.Version,
		Assignments: make([]TaskAssignmentDTO, len(task.Assignments)),
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserSummaryDTO(task.Creator)
		dto.Creator = &creator
	}

	if task.Type != nil {
		taskType := ToTaskTypeDTO(*task.Type)
		dto.Type = &taskType
	}

	for i, assignment := range task.Assignments {
		dto.Assignments[i] = ToTaskAssignmentDTO(assignment)
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
