package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/config"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/database"
	kafkainfra "github.com/Imagineer253/compass-shipment-tracker/internal/infra/kafka"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/logger"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/notify"
	redisinfra "github.com/Imagineer253/compass-shipment-tracker/internal/infra/redis"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	postgresrepo "github.com/Imagineer253/compass-shipment-tracker/internal/repository/postgres"
	redisrepo "github.com/Imagineer253/compass-shipment-tracker/internal/repository/redis"
	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/middleware"
	"github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/routes"
	"github.com/Imagineer253/compass-shipment-tracker/internal/usecase"
)

type Application struct {
	cfg         *config.AppConfig
	engine      *gin.Engine
	logger      *zap.Logger
	pool        *pgxpool.Pool
	redis       *redisinfra.Client
	deviceTrust *usecase.DeviceTrustService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		// Only reachable in development; config validation rejects an
		// empty secret elsewhere. Tokens do not survive restarts.
		jwtSecret, err = security.GenerateSecureToken(32)
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral jwt secret: %w", err)
		}
		log.Warn("jwt.secret not configured, using ephemeral secret")
	}

	tokenIssuer, err := security.NewTokenIssuer(jwtSecret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	totpEngine := security.NewTOTPEngine(cfg.TOTP.Issuer, cfg.TOTP.Skew)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	otpStore := redisrepo.NewOTPRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":otp")
	challengeStore := redisrepo.NewChallengeRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":challenge")
	registrationStore := redisrepo.NewRegistrationRepository(redisClient.Client(), cfg.Redis.KeyPrefix+":pending_reg")

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.App.Env != "development" {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	notifier := notify.NewLoggingNotifier(log)
	passwordValidator := security.DefaultPasswordValidator()

	credentialService := usecase.NewCredentialService(repos.Accounts)

	otpService := usecase.NewOTPService(otpStore, notifier, usecase.OTPConfig{
		Length:          cfg.OTP.Length,
		RegistrationTTL: cfg.OTP.RegistrationTTL,
		LoginTTL:        cfg.OTP.LoginTTL,
		MaxAttempts:     cfg.OTP.MaxAttempts,
	})

	backupCodeService := usecase.NewBackupCodeService(repos.BackupCodes, usecase.BackupCodeConfig{
		BatchSize:  cfg.BackupCodes.BatchSize,
		CodeLength: cfg.BackupCodes.CodeLength,
	})

	deviceTrustService := usecase.NewDeviceTrustService(repos.Devices, repos.Accounts, eventPublisher, log, usecase.DeviceTrustConfig{
		TTL:        cfg.DeviceTrust.TTL,
		MaxDevices: cfg.DeviceTrust.MaxDevices,
	})

	registrationService := usecase.NewRegistrationService(
		repos.Accounts,
		registrationStore,
		otpService,
		eventPublisher,
		passwordValidator,
		log,
		usecase.RegistrationConfig{PendingTTL: cfg.Registration.PendingTTL},
	)

	loginService := usecase.NewLoginService(
		credentialService,
		repos.Accounts,
		challengeStore,
		deviceTrustService,
		backupCodeService,
		otpService,
		totpEngine,
		tokenIssuer,
		eventPublisher,
		log,
		usecase.LoginConfig{ChallengeTTL: cfg.Challenge.TTL},
	)

	twoFactorService := usecase.NewTwoFactorService(
		repos.Accounts,
		credentialService,
		backupCodeService,
		deviceTrustService,
		totpEngine,
		eventPublisher,
		log,
	)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.KeyPrefix + ":rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Tokens:      tokenIssuer,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Login:        loginService,
			Registration: registrationService,
			TwoFactor:    twoFactorService,
			DeviceTrust:  deviceTrustService,
		},
	})

	return &Application{
		cfg:         cfg,
		engine:      engine,
		logger:      log,
		pool:        pool,
		redis:       redisClient,
		deviceTrust: deviceTrustService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepExpiredDevices(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepExpiredDevices periodically purges expired trusted-device grants so
// the registry does not accumulate dead rows.
func (a *Application) sweepExpiredDevices(ctx context.Context) {
	interval := a.cfg.DeviceTrust.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if _, err := a.deviceTrust.Sweep(sweepCtx); err != nil {
				a.logger.Warn("device sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}
