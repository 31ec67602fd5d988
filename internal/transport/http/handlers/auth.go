package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

// LoginRequest carries password authentication credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// ChallengePayload describes an open second-factor challenge.
type ChallengePayload struct {
	ID        string    `json:"id"`
	Methods   []string  `json:"methods"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse is returned by login and challenge resolution. Status is
// "ok" when a token was issued and "challenge" when a second factor is
// still required.
type LoginResponse struct {
	Status    string            `json:"status"`
	Token     string            `json:"token,omitempty"`
	Redirect  string            `json:"redirect,omitempty"`
	Account   *AccountSummary   `json:"account,omitempty"`
	Challenge *ChallengePayload `json:"challenge,omitempty"`
}

// ResolveChallengeRequest carries a single challenge resolution attempt.
type ResolveChallengeRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Code        string `json:"code" binding:"required"`
	TrustDevice bool   `json:"trust_device"`
}

// EmailCodeRequest asks for a login code to be emailed for an open challenge.
type EmailCodeRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required"`
}

// AuthHandler exposes login endpoints.
type AuthHandler struct {
	login *usecase.LoginService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// RegisterRoutes binds login routes, applying optional middleware ahead of the password endpoint.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.loginHandler)
	r.POST("/login", chain...)

	r.POST("/login/challenge", h.resolveChallenge)
	r.POST("/login/challenge/email", h.requestEmailCode)
}

func deviceContext(c *gin.Context) domain.DeviceContext {
	return domain.DeviceContext{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
	{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is locked or disabled"},
	{Err: usecase.ErrEmailUnverified, Status: http.StatusForbidden, Message: "email not verified"},
}

func (h *AuthHandler) loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.login.Login(c.Request.Context(), req.Email, req.Password, req.Remember, deviceContext(c))
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, newLoginResponse(result))
}

var resolveErrorCases = []ErrorCase{
	{Err: usecase.ErrChallengeNotFound, Status: http.StatusUnauthorized, Message: "challenge not found or expired"},
	{Err: usecase.ErrEmailUnverified, Status: http.StatusForbidden, Message: "email not verified"},
	{Err: usecase.ErrSecondFactorInvalid, Status: http.StatusUnauthorized, Message: "verification code invalid"},
	{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusUnauthorized, Message: "verification code expired"},
	{Err: usecase.ErrVerificationAttemptsExceeded, Status: http.StatusTooManyRequests, Message: "too many attempts, request a new code"},
}

func (h *AuthHandler) resolveChallenge(c *gin.Context) {
	var req ResolveChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid challenge payload"))
		return
	}

	method := domain.ChallengeMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	switch method {
	case domain.ChallengeMethodTOTP, domain.ChallengeMethodBackup, domain.ChallengeMethodEmail:
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown challenge method"))
		return
	}

	result, err := h.login.ResolveChallenge(c.Request.Context(), usecase.ResolveInput{
		ChallengeID: req.ChallengeID,
		Method:      method,
		Code:        req.Code,
		TrustDevice: req.TrustDevice,
	})
	if err != nil {
		RespondWithMappedError(c, err, resolveErrorCases, http.StatusInternalServerError, "challenge resolution failed")
		return
	}

	c.JSON(http.StatusOK, newLoginResponse(result))
}

func (h *AuthHandler) requestEmailCode(c *gin.Context) {
	var req EmailCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.login.RequestEmailCode(c.Request.Context(), req.ChallengeID); err != nil {
		RespondWithMappedError(c, err, resolveErrorCases, http.StatusInternalServerError, "could not send code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

func newLoginResponse(result *usecase.LoginResult) LoginResponse {
	if result.Challenge != nil {
		methods := make([]string, 0, len(result.Challenge.Methods))
		for _, m := range result.Challenge.Methods {
			methods = append(methods, string(m))
		}
		return LoginResponse{
			Status: "challenge",
			Challenge: &ChallengePayload{
				ID:        result.Challenge.ID,
				Methods:   methods,
				ExpiresAt: result.Challenge.ExpiresAt.UTC(),
			},
		}
	}

	summary := NewAccountSummary(result.Account)
	return LoginResponse{
		Status:   "ok",
		Token:    result.Token,
		Redirect: result.Redirect,
		Account:  &summary,
	}
}
