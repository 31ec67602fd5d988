package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/middleware"
	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

// TwoFASetupResponse returns authenticator enrollment material.
type TwoFASetupResponse struct {
	Secret   string `json:"secret"`
	URL      string `json:"otpauth_url"`
	QRBase64 string `json:"qr_png_base64"`
}

// TwoFAEnableRequest confirms the authenticator with a live code.
type TwoFAEnableRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFADisableRequest tears the second factor down.
type TwoFADisableRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// BackupCodesRequest asks for a fresh recovery code batch.
type BackupCodesRequest struct {
	Password string `json:"password" binding:"required"`
}

// BackupCodesResponse returns plaintext recovery codes. They are shown
// exactly once.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// TwoFAStatusResponse summarizes the account's second-factor posture.
type TwoFAStatusResponse struct {
	Enabled         bool `json:"enabled"`
	SetupInProgress bool `json:"setup_in_progress"`
	BackupCodesLeft int  `json:"backup_codes_left"`
	TrustedDevices  int  `json:"trusted_devices"`
}

// TwoFAHandler exposes second-factor management endpoints. All routes
// require an authenticated account.
type TwoFAHandler struct {
	twofa *usecase.TwoFactorService
}

// NewTwoFAHandler constructs TwoFAHandler.
func NewTwoFAHandler(twofa *usecase.TwoFactorService) *TwoFAHandler {
	return &TwoFAHandler{twofa: twofa}
}

// RegisterRoutes binds second-factor management routes.
func (h *TwoFAHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/status", h.status)
	r.POST("/setup", h.setup)
	r.POST("/enable", h.enable)
	r.POST("/disable", h.disable)
	r.POST("/backup-codes", h.regenerateBackupCodes)
}

var twoFAErrorCases = []ErrorCase{
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: usecase.ErrTwoFAAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication already enabled"},
	{Err: usecase.ErrTwoFANotEnabled, Status: http.StatusConflict, Message: "two-factor authentication not enabled"},
	{Err: usecase.ErrTwoFASetupMissing, Status: http.StatusConflict, Message: "run setup before enabling"},
	{Err: usecase.ErrSecondFactorInvalid, Status: http.StatusUnauthorized, Message: "verification code invalid"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "password incorrect"},
}

func (h *TwoFAHandler) setup(c *gin.Context) {
	provisioning, err := h.twofa.Setup(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		RespondWithMappedError(c, err, twoFAErrorCases, http.StatusInternalServerError, "setup failed")
		return
	}

	c.JSON(http.StatusOK, TwoFASetupResponse{
		Secret:   provisioning.Secret,
		URL:      provisioning.URL,
		QRBase64: provisioning.QRBase64,
	})
}

func (h *TwoFAHandler) enable(c *gin.Context) {
	var req TwoFAEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	codes, err := h.twofa.Enable(c.Request.Context(), middleware.AccountID(c), req.Code)
	if err != nil {
		RespondWithMappedError(c, err, twoFAErrorCases, http.StatusInternalServerError, "enable failed")
		return
	}

	c.JSON(http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

func (h *TwoFAHandler) disable(c *gin.Context) {
	var req TwoFADisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.twofa.Disable(c.Request.Context(), middleware.AccountID(c), req.Password, req.Code); err != nil {
		RespondWithMappedError(c, err, twoFAErrorCases, http.StatusInternalServerError, "disable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor authentication disabled"})
}

func (h *TwoFAHandler) regenerateBackupCodes(c *gin.Context) {
	var req BackupCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	codes, err := h.twofa.RegenerateBackupCodes(c.Request.Context(), middleware.AccountID(c), req.Password)
	if err != nil {
		RespondWithMappedError(c, err, twoFAErrorCases, http.StatusInternalServerError, "regeneration failed")
		return
	}

	c.JSON(http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

func (h *TwoFAHandler) status(c *gin.Context) {
	status, err := h.twofa.Status(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		RespondWithMappedError(c, err, twoFAErrorCases, http.StatusInternalServerError, "status unavailable")
		return
	}

	c.JSON(http.StatusOK, TwoFAStatusResponse{
		Enabled:         status.Enabled,
		SetupInProgress: status.SetupInProgress,
		BackupCodesLeft: status.BackupCodesLeft,
		TrustedDevices:  status.TrustedDevices,
	})
}
