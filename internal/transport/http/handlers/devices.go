package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/middleware"
	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

// DeviceSummary describes a trusted device returned by the API. The raw
// fingerprint and user agent stay server side.
type DeviceSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IP         *string   `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DeviceListResponse returns the account's active trusted devices.
type DeviceListResponse struct {
	Devices []DeviceSummary `json:"devices"`
}

// DeviceHandler exposes trusted-device management endpoints. All routes
// require an authenticated account.
type DeviceHandler struct {
	deviceTrust *usecase.DeviceTrustService
}

// NewDeviceHandler constructs DeviceHandler.
func NewDeviceHandler(deviceTrust *usecase.DeviceTrustService) *DeviceHandler {
	return &DeviceHandler{deviceTrust: deviceTrust}
}

// RegisterRoutes binds trusted-device routes.
func (h *DeviceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.DELETE("", h.revokeAll)
	r.DELETE("/:id", h.revoke)
}

var deviceErrorCases = []ErrorCase{
	{Err: usecase.ErrDeviceNotFound, Status: http.StatusNotFound, Message: "trusted device not found"},
}

func (h *DeviceHandler) list(c *gin.Context) {
	devices, err := h.deviceTrust.List(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		RespondWithMappedError(c, err, deviceErrorCases, http.StatusInternalServerError, "could not list devices")
		return
	}

	summaries := make([]DeviceSummary, 0, len(devices))
	for _, device := range devices {
		summaries = append(summaries, newDeviceSummary(device))
	}

	c.JSON(http.StatusOK, DeviceListResponse{Devices: summaries})
}

func (h *DeviceHandler) revoke(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "device id is required"))
		return
	}

	if err := h.deviceTrust.Revoke(c.Request.Context(), middleware.AccountID(c), deviceID); err != nil {
		RespondWithMappedError(c, err, deviceErrorCases, http.StatusInternalServerError, "could not revoke device")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "device trust revoked"})
}

func (h *DeviceHandler) revokeAll(c *gin.Context) {
	if err := h.deviceTrust.RevokeAll(c.Request.Context(), middleware.AccountID(c)); err != nil {
		RespondWithMappedError(c, err, deviceErrorCases, http.StatusInternalServerError, "could not revoke devices")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "all device trust revoked"})
}

func newDeviceSummary(device domain.TrustedDevice) DeviceSummary {
	return DeviceSummary{
		ID:         device.ID,
		Name:       device.Name,
		IP:         device.IP,
		CreatedAt:  device.CreatedAt,
		LastUsedAt: device.LastUsedAt,
		ExpiresAt:  device.ExpiresAt,
	}
}
