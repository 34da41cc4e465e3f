package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-todo-api/internal/constants"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
	"github.com/yukikurage/team-todo-api/internal/services"
)

// respondServiceError maps service errors onto the API error taxonomy.
func respondServiceError(c *gin.Context, err error) {
	var missing *services.MissingUsersError
	if errors.As(err, &missing) {
		apierrors.BadRequestWithDetails(c, apierrors.ErrCodeUnknownAssignees, services.ErrAssigneeNotFound.Error(), gin.H{
			"missing_user_ids": missing.IDs,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrInvalidDueTime),
		errors.Is(err, services.ErrUnknownTaskType),
		errors.Is(err, services.ErrLoginRequired),
		errors.Is(err, services.ErrLoginTooLong),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrDeviceTokenRequired),
		errors.Is(err, services.ErrDeviceTokenTooLong),
		errors.Is(err, services.ErrTaskTypeNameRequired),
		errors.Is(err, services.ErrTaskTypeNameTooLong):
		apierrors.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTaskTypeNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrTaskNotConfirmed),
		errors.Is(err, services.ErrTaskAlreadyCompleted):
		apierrors.PreconditionFailed(c, err.Error())

	case errors.Is(err, services.ErrLoginTaken),
		errors.Is(err, services.ErrDeviceTokenTaken),
		errors.Is(err, services.ErrTaskTypeExists),
		errors.Is(err, services.ErrTaskModified):
		apierrors.Conflict(c, err.Error())

	case errors.Is(err, services.ErrRoleNotAllowed):
		apierrors.ForbiddenWithCode(c, apierrors.ErrCodeInsufficientPermissions, err.Error())
	case errors.Is(err, services.ErrNotTaskCreator),
		errors.Is(err, services.ErrNotTaskMember),
		errors.Is(err, services.ErrUserNotManageable),
		errors.Is(err, services.ErrCannotDeleteSelf):
		apierrors.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInvalidCredentials, err.Error())
	case errors.Is(err, services.ErrAccountDeleted):
		apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeAccountDeleted, err.Error())
	case errors.Is(err, services.ErrTokenRevoked):
		apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeTokenRevoked, err.Error())

	default:
		c.Error(err)
		apierrors.InternalError(c, "")
	}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}
