package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/repository"
)

// DeviceHandler registers device tokens for push notifications
type DeviceHandler struct {
	deviceRepo *repository.DeviceRepository
}

func NewDeviceHandler(deviceRepo *repository.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{deviceRepo: deviceRepo}
}

// RegisterDevice godoc
// @Summary Register a device token for push notifications
// @Tags Devices
// @Accept json
// @Produce json
// @Param body body model.RegisterDeviceRequest true "Device registration"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.deviceRepo.Upsert(req.UserID, req.FCMToken, req.DeviceType); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register device"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registered"})
}
