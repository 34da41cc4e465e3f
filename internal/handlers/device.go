package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-todo-api/internal/dto"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
	"github.com/yukikurage/team-todo-api/internal/middleware"
	"github.com/yukikurage/team-todo-api/internal/services"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// RegisterDevice stores a push token for the current user
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	outcome, err := h.deviceService.Register(c.Request.Context(), userID, req.DeviceToken, req.DeviceType)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := http.StatusOK
	if outcome == services.DeviceRegistered {
		status = http.StatusCreated
	}
	c.JSON(status, dto.DeviceStatusResponse{Status: string(outcome)})
}

// UnregisterDevice removes one push token of the current user
func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	outcome, err := h.deviceService.Unregister(c.Request.Context(), userID, c.Param("token"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeviceStatusResponse{Status: string(outcome)})
}

// UnregisterAllDevices removes every push token of the current user
func (h *DeviceHandler) UnregisterAllDevices(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	removed, err := h.deviceService.UnregisterAll(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnregisterAllResponse{Removed: removed})
}
