package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validation
var (
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title is too long")
	ErrInvalidDueTime       = errors.New("due time must be formatted as HH:MM")
	ErrUnknownTaskType      = errors.New("task type does not exist")
	ErrAssigneeNotFound     = errors.New("one or more assignees do not exist")
	ErrLoginRequired        = errors.New("login is required")
	ErrLoginTooLong         = errors.New("login is too long")
	ErrNameRequired         = errors.New("first and last name are required")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrInvalidRole          = errors.New("invalid role")
	ErrDeviceTokenRequired  = errors.New("device token is required")
	ErrDeviceTokenTooLong   = errors.New("device token is too long")
	ErrTaskTypeNameRequired = errors.New("task type name is required")
	ErrTaskTypeNameTooLong  = errors.New("task type name is too long")
)

// Not found
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrTaskTypeNotFound = errors.New("task type not found")
)

// Precondition
var (
	ErrTaskNotConfirmed     = errors.New("task has not been confirmed by the assignee")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
)

// Conflict
var (
	ErrLoginTaken       = errors.New("login already exists")
	ErrDeviceTokenTaken = errors.New("device token is registered to another user")
	ErrTaskTypeExists   = errors.New("task type already exists")
	ErrTaskModified     = errors.New("task was modified by another request")
)

// Permission
var (
	ErrNotTaskCreator    = errors.New("only the task creator can perform this action")
	ErrNotTaskMember     = errors.New("user is not a participant of this task")
	ErrRoleNotAllowed    = errors.New("role is not allowed to perform this action")
	ErrUserNotManageable = errors.New("user is outside of the caller's hierarchy")
	ErrCannotDeleteSelf  = errors.New("users cannot delete their own account")
)

// Authentication
var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrAccountDeleted     = errors.New("account has been deleted")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// MissingUsersError lists assignee ids that do not belong to active users.
type MissingUsersError struct {
	IDs []uint64
}

func (e *MissingUsersError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("%s: %s", ErrAssigneeNotFound, strings.Join(parts, ", "))
}

func (e *MissingUsersError) Unwrap() error {
	return ErrAssigneeNotFound
}
