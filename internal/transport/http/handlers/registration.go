package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

// RegistrationRequest carries the signup form fields.
type RegistrationRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

// VerifyEmailRequest confirms a staged signup with the emailed code.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ResendCodeRequest asks for a fresh verification code.
type ResendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

// VerifyEmailResponse returns the newly created account together with the
// access token from the finalized login; no second password prompt follows
// a successful verification.
type VerifyEmailResponse struct {
	Token    string         `json:"token"`
	Redirect string         `json:"redirect"`
	Account  AccountSummary `json:"account"`
}

// RegistrationHandler exposes signup endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	login        *usecase.LoginService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService, login *usecase.LoginService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, login: login}
}

// RegisterRoutes binds signup routes, applying optional middleware ahead of the register endpoint.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
	chain = append(chain, h.register)
	r.POST("/register", chain...)

	r.POST("/register/verify", h.verify)
	r.POST("/register/resend", h.resend)
}

var registerErrorCases = []ErrorCase{
	{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
}

func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Organization: req.Organization,
	})
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "verification code sent"})
}

var verifyErrorCases = []ErrorCase{
	{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "verification code invalid"},
	{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusBadRequest, Message: "verification code expired"},
	{Err: usecase.ErrVerificationAttemptsExceeded, Status: http.StatusTooManyRequests, Message: "too many attempts, request a new code"},
	{Err: usecase.ErrRegistrationNotFound, Status: http.StatusNotFound, Message: "no pending registration for email"},
}

func (h *RegistrationHandler) verify(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	account, err := h.registration.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
			return
		}
		RespondWithMappedError(c, err, verifyErrorCases, http.StatusInternalServerError, "verification failed")
		return
	}

	result, err := h.login.FinalizeVerified(c.Request.Context(), account, deviceContext(c))
	if err != nil {
		RespondWithMappedError(c, err, verifyErrorCases, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, VerifyEmailResponse{
		Token:    result.Token,
		Redirect: result.Redirect,
		Account:  NewAccountSummary(result.Account),
	})
}

func (h *RegistrationHandler) resend(c *gin.Context) {
	var req ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.registration.ResendCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, verifyErrorCases, http.StatusInternalServerError, "could not resend code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}
