package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/config"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/handlers"
	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/middleware"
	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Login        *usecase.LoginService
	Registration *usecase.RegistrationService
	TwoFactor    *usecase.TwoFactorService
	DeviceTrust  *usecase.DeviceTrustService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Tokens      *security.TokenIssuer
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	authMiddleware := middleware.RequireAuth(deps.Tokens)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Login)
		authHandler.RegisterRoutes(authGroup, buildRateLimitMiddlewares(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration, deps.Services.Login)
		registrationHandler.RegisterRoutes(authGroup, buildRateLimitMiddlewares(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts)...)

		twoFAGroup := api.Group("/2fa")
		twoFAGroup.Use(authMiddleware)
		twoFAHandler := handlers.NewTwoFAHandler(deps.Services.TwoFactor)
		twoFAHandler.RegisterRoutes(twoFAGroup)

		deviceGroup := api.Group("/devices")
		deviceGroup.Use(authMiddleware)
		deviceHandler := handlers.NewDeviceHandler(deps.Services.DeviceTrust)
		deviceHandler.RegisterRoutes(deviceGroup)
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
