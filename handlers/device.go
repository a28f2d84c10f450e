// File: trustlink/handlers/device.go
package handlers

import (
	"net/http"

	deviceRepo "trustlink/database/repository/device"
	"trustlink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceHandler exposes owner-scoped device management.
type DeviceHandler struct {
	Devices deviceRepo.DeviceRepository
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(devices deviceRepo.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{Devices: devices}
}

// ListDevicesHandler returns the authenticated user's bound devices.
func (h *DeviceHandler) ListDevicesHandler(c *gin.Context) {
	subjectID := c.GetString("userID")

	devices, err := h.Devices.ListByOwner(c.Request.Context(), subjectID)
	if err != nil {
		getLogger(c).Error("Failed to list devices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// RevokeDeviceHandler flips the password fallback kill switch, forcing the
// device through password login until re-enabled.
func (h *DeviceHandler) RevokeDeviceHandler(c *gin.Context) {
	subjectID := c.GetString("userID")
	deviceID := c.Param("deviceId")

	ctx := c.Request.Context()
	device, err := h.Devices.GetByID(ctx, deviceID)
	if err != nil {
		getLogger(c).Error("Failed to load device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if device == nil || device.OwnerUserID != subjectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_target", "error_description": "Device is unknown"})
		return
	}

	if err := h.Devices.SetRequiresPassword(ctx, deviceID, true); err != nil {
		getLogger(c).Error("Failed to revoke device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	utils.GetLogger().Info("Device revoked", zap.String("deviceID", deviceID), zap.String("userID", subjectID))
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID, "requires_password": true})
}

// DeleteDeviceHandler removes a bound device entirely.
func (h *DeviceHandler) DeleteDeviceHandler(c *gin.Context) {
	subjectID := c.GetString("userID")
	deviceID := c.Param("deviceId")

	ctx := c.Request.Context()
	device, err := h.Devices.GetByID(ctx, deviceID)
	if err != nil {
		getLogger(c).Error("Failed to load device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if device == nil || device.OwnerUserID != subjectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_target", "error_description": "Device is unknown"})
		return
	}

	if err := h.Devices.Delete(ctx, deviceID); err != nil {
		getLogger(c).Error("Failed to delete device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device_id": deviceID, "deleted": true})
}

// HealthHandler returns the latest stored health snapshot.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
