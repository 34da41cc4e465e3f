package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/team-todo-api/internal/clock"
	"github.com/yukikurage/team-todo-api/internal/constants"
	"github.com/yukikurage/team-todo-api/internal/metrics"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/notify"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"github.com/yukikurage/team-todo-api/internal/utils"
	"gorm.io/gorm"
)

var taskDetailPreloads = []string{"Creator", "Type", "Assignments", "Assignments.User"}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint64
	Role models.Role
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	reconciler *AssignmentReconciler
	notifier   notify.Notifier
	metrics    metrics.Collector
	clock      clock.Clock
	log        *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, notifier notify.Notifier, collector metrics.Collector, clk clock.Clock, log *slog.Logger) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		reconciler: NewAssignmentReconciler(clk),
		notifier:   notifier,
		metrics:    collector,
		clock:      clk,
		log:        log,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	DueTime     *string
	StartDate   *time.Time
	IsImportant bool
	TypeID      *uint64
}

// UpdateTaskInput is a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	DueDate        *time.Time
	ClearDueDate   bool
	DueTime        *string
	ClearDueTime   bool
	StartDate      *time.Time
	ClearStartDate bool
	IsImportant    *bool
	TypeID         *uint64
	ClearType      bool
	Status         *bool
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *uint64
}

// GetTask returns a task visible to actor
func (s *TaskService) GetTask(ctx context.Context, taskID uint64, actor Actor) (*models.Task, error) {
	task, err := s.findTask(ctx, s.taskRepo, taskID, taskDetailPreloads...)
	if err != nil {
		return nil, err
	}

	if !isParticipant(task, actor) && !actor.Role.CanManage() {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListCreatedBy returns the tasks created by creatorID
func (s *TaskService) ListCreatedBy(ctx context.Context, creatorID uint64, page utils.PaginationParams) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{CreatedBy: &creatorID, Pagination: page})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// ListAssignedTo returns the tasks userID is assigned to
func (s *TaskService) ListAssignedTo(ctx context.Context, userID uint64, page utils.PaginationParams) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{AssignedUserID: &userID, Pagination: page})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// CreateTask creates a task and attaches the insertion deltas as its assignments
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, deltas []AssignmentDelta, actor Actor) (*models.Task, error) {
	if !actor.Role.CanManage() {
		return nil, ErrRoleNotAllowed
	}

	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDueTime(input.DueTime); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		DueDate:     input.DueDate,
		DueTime:     input.DueTime,
		StartDate:   input.StartDate,
		IsImportant: input.IsImportant,
		TypeID:      input.TypeID,
		CreatorID:   actor.ID,
	}

	var assignees []uint64
	err := s.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		if err := s.ensureTaskType(ctx, tx, task.TypeID); err != nil {
			return err
		}
		if err := tx.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		result, err := s.reconciler.Reconcile(ctx, tx, task, deltas, actor.ID)
		if err != nil {
			return err
		}
		for _, a := range result.Added {
			assignees = append(assignees, a.UserID)
		}
		return nil
	})
	if err != nil {
		s.countError("create", err)
		return nil, err
	}

	s.metrics.Increment(metrics.TaskCreated, nil)
	if len(assignees) > 0 {
		s.metrics.Increment(metrics.AssignmentsAdded, nil)
	}
	s.log.Info("task created", "task_id", task.ID, "actor_id", actor.ID, "assignees", len(assignees))

	s.notifier.Notify(ctx, notify.Notification{
		Event:   notify.EventCreated,
		Subject: task.Title,
		Users:   notify.Audience(notify.EventCreated, notify.Snapshot{After: assignees}),
	})

	return s.reload(ctx, task.ID)
}

// UpdateTask patches task fields and reconciles assignment deltas in one transaction
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput, deltas []AssignmentDelta, actor Actor) (*models.Task, error) {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if err := validateTitle(trimmed); err != nil {
			return nil, err
		}
		input.Title = &trimmed
	}
	if err := validateDueTime(input.DueTime); err != nil {
		return nil, err
	}

	var (
		task       *models.Task
		before     []uint64
		after      []uint64
		completed  bool
		reconciled ReconcileResult
	)
	err := s.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		var err error
		task, err = s.findTask(ctx, tx, taskID, "Assignments")
		if err != nil {
			return err
		}
		if !canModify(task, actor) {
			return ErrNotTaskCreator
		}
		if input.ExpectedVersion != nil && *input.ExpectedVersion != task.Version {
			return ErrTaskModified
		}
		before = task.AssigneeIDs()

		completed, err = s.applyUpdate(ctx, tx, task, input)
		if err != nil {
			return err
		}
		if err := s.save(ctx, tx, task); err != nil {
			return err
		}

		reconciled, err = s.reconciler.Reconcile(ctx, tx, task, deltas, actor.ID)
		if err != nil {
			return err
		}

		current, err := tx.ListAssignments(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}
		task.Assignments = current
		after = task.AssigneeIDs()
		return nil
	})
	if err != nil {
		s.countError("update", err)
		return nil, err
	}

	s.metrics.Increment(metrics.TaskUpdated, nil)
	if len(reconciled.Removed) > 0 {
		s.metrics.Increment(metrics.AssignmentsRemoved, nil)
	}
	if len(reconciled.Added) > 0 {
		s.metrics.Increment(metrics.AssignmentsAdded, nil)
	}
	s.log.Info("task updated", "task_id", task.ID, "actor_id", actor.ID,
		"removed", len(reconciled.Removed), "added", len(reconciled.Added), "version", task.Version)

	snapshot := notify.Snapshot{CreatorID: task.CreatorID, Before: before, After: after}
	s.notifier.Notify(ctx, notify.Notification{
		Event:   notify.EventUpdated,
		Subject: task.Title,
		Users:   notify.Audience(notify.EventUpdated, snapshot),
	})
	if completed {
		s.metrics.Increment(metrics.TaskCompleted, nil)
		s.notifier.Notify(ctx, notify.Notification{
			Event:   notify.EventCompleted,
			Subject: task.Title,
			Users:   notify.Audience(notify.EventCompleted, snapshot),
		})
	}

	return s.reload(ctx, task.ID)
}

// SetConfirmed records the assignee's "work done" flag. true submits the task for
// review, false sends it back to the assignees.
func (s *TaskService) SetConfirmed(ctx context.Context, taskID uint64, confirmed bool, actor Actor) error {
	var (
		task    *models.Task
		changed bool
	)
	err := s.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		var err error
		task, err = s.findTask(ctx, tx, taskID, "Assignments")
		if err != nil {
			return err
		}
		if !isParticipant(task, actor) {
			return ErrNotTaskMember
		}
		if task.IsCompleted() {
			return ErrTaskAlreadyCompleted
		}
		if task.IsConfirmed == confirmed {
			return nil
		}

		changed = true
		task.IsConfirmed = confirmed
		return s.save(ctx, tx, task)
	})
	if err != nil {
		s.countError("confirm", err)
		return err
	}
	if !changed {
		return nil
	}

	event := notify.EventReviewRejected
	if confirmed {
		event = notify.EventSubmittedForReview
	}
	s.metrics.Increment(metrics.TaskConfirmed, map[string]string{"confirmed": fmt.Sprint(confirmed)})
	s.log.Info("task confirmation changed", "task_id", task.ID, "actor_id", actor.ID, "confirmed", confirmed)

	s.notifier.Notify(ctx, notify.Notification{
		Event:   event,
		Subject: task.Title,
		Users:   notify.Audience(event, snapshotOf(task)),
	})
	return nil
}

// CompleteTask signs off a confirmed task
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint64, actor Actor) error {
	var task *models.Task
	err := s.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		var err error
		task, err = s.findTask(ctx, tx, taskID, "Assignments")
		if err != nil {
			return err
		}
		if !canModify(task, actor) {
			return ErrNotTaskCreator
		}
		if !task.IsConfirmed {
			return ErrTaskNotConfirmed
		}
		if task.Status {
			return ErrTaskAlreadyCompleted
		}

		now := s.clock.Now()
		task.Status = true
		task.CompletedAt = &now
		return s.save(ctx, tx, task)
	})
	if err != nil {
		s.countError("complete", err)
		return err
	}

	s.metrics.Increment(metrics.TaskCompleted, nil)
	s.log.Info("task completed", "task_id", task.ID, "actor_id", actor.ID)

	s.notifier.Notify(ctx, notify.Notification{
		Event:   notify.EventReviewPassed,
		Subject: task.Title,
		Users:   notify.Audience(notify.EventReviewPassed, snapshotOf(task)),
	})
	return nil
}

// DeleteTask deletes a task; its assignees are resolved before the rows go away
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64, actor Actor) error {
	var (
		task     *models.Task
		audience []uint64
	)
	err := s.taskRepo.Transaction(ctx, func(tx repository.TaskRepository) error {
		var err error
		task, err = s.findTask(ctx, tx, taskID, "Assignments")
		if err != nil {
			return err
		}
		if !canModify(task, actor) {
			return ErrNotTaskCreator
		}

		audience = notify.Audience(notify.EventDeleted, snapshotOf(task))

		if err := tx.Delete(ctx, task); err != nil {
			if errors.Is(err, repository.ErrStaleTask) {
				return ErrTaskModified
			}
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		s.countError("delete", err)
		return err
	}

	s.metrics.Increment(metrics.TaskDeleted, nil)
	s.log.Info("task deleted", "task_id", taskID, "actor_id", actor.ID)

	s.notifier.Notify(ctx, notify.Notification{
		Event:   notify.EventDeleted,
		Subject: task.Title,
		Users:   audience,
	})
	return nil
}

// applyUpdate copies the patch onto task and reports whether it completes the task.
func (s *TaskService) applyUpdate(ctx context.Context, tx repository.TaskRepository, task *models.Task, input UpdateTaskInput) (bool, error) {
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearDueTime {
		task.DueTime = nil
	} else if input.DueTime != nil {
		task.DueTime = input.DueTime
	}
	if input.ClearStartDate {
		task.StartDate = nil
	} else if input.StartDate != nil {
		task.StartDate = input.StartDate
	}
	if input.IsImportant != nil {
		task.IsImportant = *input.IsImportant
	}
	if input.ClearType {
		task.TypeID = nil
	} else if input.TypeID != nil {
		if err := s.ensureTaskType(ctx, tx, input.TypeID); err != nil {
			return false, err
		}
		task.TypeID = input.TypeID
	}

	if input.Status == nil || *input.Status == task.Status {
		return false, nil
	}
	if *input.Status {
		if !task.IsConfirmed {
			return false, ErrTaskNotConfirmed
		}
		now := s.clock.Now()
		task.Status = true
		task.CompletedAt = &now
		return true, nil
	}

	task.Status = false
	task.CompletedAt = nil
	return false, nil
}

func (s *TaskService) save(ctx context.Context, tx repository.TaskRepository, task *models.Task) error {
	if err := tx.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrStaleTask) {
			return ErrTaskModified
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (s *TaskService) findTask(ctx context.Context, repo repository.TaskRepository, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := repo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) reload(ctx context.Context, taskID uint64) (*models.Task, error) {
	return s.findTask(ctx, s.taskRepo, taskID, taskDetailPreloads...)
}

func (s *TaskService) ensureTaskType(ctx context.Context, repo repository.TaskRepository, typeID *uint64) error {
	if typeID == nil {
		return nil
	}
	ok, err := repo.TaskTypeExists(ctx, *typeID)
	if err != nil {
		return fmt.Errorf("failed to verify task type: %w", err)
	}
	if !ok {
		return ErrUnknownTaskType
	}
	return nil
}

func (s *TaskService) countError(op string, err error) {
	kind := "internal"
	var missing *MissingUsersError
	switch {
	case errors.As(err, &missing):
		kind = "validation"
	case errors.Is(err, ErrTaskNotFound):
		kind = "not_found"
	case errors.Is(err, ErrTaskNotConfirmed), errors.Is(err, ErrTaskAlreadyCompleted):
		kind = "precondition"
	case errors.Is(err, ErrTaskModified):
		kind = "conflict"
	case errors.Is(err, ErrNotTaskCreator), errors.Is(err, ErrNotTaskMember), errors.Is(err, ErrRoleNotAllowed):
		kind = "forbidden"
	case errors.Is(err, ErrUnknownTaskType):
		kind = "validation"
	}
	s.metrics.Increment(metrics.TaskErrors, map[string]string{"operation": op, "error_type": kind})
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTaskTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateDueTime(dueTime *string) error {
	if dueTime == nil {
		return nil
	}
	if _, err := time.Parse(constants.DueTimeLayout, *dueTime); err != nil {
		return ErrInvalidDueTime
	}
	return nil
}

// canModify: the creator and admins may edit, complete and delete a task.
func canModify(task *models.Task, actor Actor) bool {
	return task.CreatorID == actor.ID || actor.Role == models.RoleAdmin
}

func isParticipant(task *models.Task, actor Actor) bool {
	if canModify(task, actor) {
		return true
	}
	for _, a := range task.Assignments {
		if a.UserID == actor.ID {
			return true
		}
	}
	return false
}

func snapshotOf(task *models.Task) notify.Snapshot {
	var assigners []uint64
	for _, a := range task.Assignments {
		if a.AssignedBy != nil {
			assigners = append(assigners, *a.AssignedBy)
		}
	}
	return notify.Snapshot{
		CreatorID: task.CreatorID,
		Assigners: assigners,
		After:     task.AssigneeIDs(),
	}
}
