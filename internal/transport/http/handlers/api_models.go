package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// ErrorResponse represents an error payload with optional trace ID
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name,omitempty"`
	Organization     string     `json:"organization,omitempty"`
	TwoFAEnabled     bool       `json:"twofa_enabled"`
	ProfileCompleted bool       `json:"profile_completed"`
	RegisteredAt     time.Time  `json:"registered_at"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// NewAccountSummary maps a domain account to its API representation.
func NewAccountSummary(account *domain.Account) AccountSummary {
	return AccountSummary{
		ID:               account.ID,
		Email:            account.Email,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
		Organization:     account.Organization,
		TwoFAEnabled:     account.TwoFAEnabled,
		ProfileCompleted: account.ProfileCompleted,
		RegisteredAt:     account.RegisteredAt,
		LastLogin:        account.LastLogin,
	}
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
