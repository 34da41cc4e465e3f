package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-todo-api/internal/dto"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
	"github.com/yukikurage/team-todo-api/internal/middleware"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/services"
)

type TaskTypeHandler struct {
	taskTypeService *services.TaskTypeService
}

func NewTaskTypeHandler(taskTypeService *services.TaskTypeService) *TaskTypeHandler {
	return &TaskTypeHandler{taskTypeService: taskTypeService}
}

// ListTaskTypes returns task types. Admins also see hidden ones.
func (h *TaskTypeHandler) ListTaskTypes(c *gin.Context) {
	role, _ := middleware.GetUserRole(c)

	types, err := h.taskTypeService.List(c.Request.Context(), role != models.RoleAdmin)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_types": dto.ToTaskTypeDTOs(types)})
}

func (h *TaskTypeHandler) CreateTaskType(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.TaskTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	taskType, err := h.taskTypeService.Create(c.Request.Context(), req.Name, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskTypeDTO(*taskType))
}

func (h *TaskTypeHandler) RenameTaskType(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.TaskTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	taskType, err := h.taskTypeService.Rename(c.Request.Context(), id, req.Name, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskTypeDTO(*taskType))
}

func (h *TaskTypeHandler) SetAccessibility(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.TaskTypeAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	taskType, err := h.taskTypeService.SetAccessibility(c.Request.Context(), id, *req.IsAccessible, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskTypeDTO(*taskType))
}
