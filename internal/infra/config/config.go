package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App          AppSettings          `mapstructure:"app"`
	Postgres     PostgresSettings     `mapstructure:"postgres"`
	Redis        RedisSettings        `mapstructure:"redis"`
	Kafka        KafkaSettings        `mapstructure:"kafka"`
	JWT          JWTSettings          `mapstructure:"jwt"`
	RateLimit    RateLimitSettings    `mapstructure:"rate_limit"`
	Argon2       Argon2Settings       `mapstructure:"argon2"`
	OTP          OTPSettings          `mapstructure:"otp"`
	TOTP         TOTPSettings         `mapstructure:"totp"`
	BackupCodes  BackupCodeSettings   `mapstructure:"backup_codes"`
	DeviceTrust  DeviceTrustSettings  `mapstructure:"device_trust"`
	Challenge    ChallengeSettings    `mapstructure:"challenge"`
	Registration RegistrationSettings `mapstructure:"registration"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and key namespacing
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	ResendMaxAttempts   int           `mapstructure:"resend_max_attempts"`
	VerifyMaxAttempts   int           `mapstructure:"verify_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// OTPSettings configures emailed one-time codes
type OTPSettings struct {
	Length          int           `mapstructure:"length"`
	RegistrationTTL time.Duration `mapstructure:"registration_ttl"`
	LoginTTL        time.Duration `mapstructure:"login_ttl"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
}

// TOTPSettings configures the authenticator-app factor
type TOTPSettings struct {
	Issuer string `mapstructure:"issuer"`
	Skew   uint   `mapstructure:"skew"`
}

type BackupCodeSettings struct {
	BatchSize  int `mapstructure:"batch_size"`
	CodeLength int `mapstructure:"code_length"`
}

// DeviceTrustSettings governs trusted-device grants
type DeviceTrustSettings struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxDevices    int           `mapstructure:"max_devices"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ChallengeSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RegistrationSettings struct {
	PendingTTL time.Duration `mapstructure:"pending_ttl"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("COMPASS")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.resend_max_attempts",
		"rate_limit.verify_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"otp.length",
		"otp.registration_ttl",
		"otp.login_ttl",
		"otp.max_attempts",
		"totp.issuer",
		"totp.skew",
		"backup_codes.batch_size",
		"backup_codes.code_length",
		"device_trust.ttl",
		"device_trust.max_devices",
		"device_trust.sweep_interval",
		"challenge.ttl",
		"registration.pending_ttl",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.App.Env != "development" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required outside development")
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10, got %d", c.OTP.Length)
	}
	if c.OTP.MaxAttempts < 1 {
		return fmt.Errorf("otp.max_attempts must be positive, got %d", c.OTP.MaxAttempts)
	}
	if c.DeviceTrust.MaxDevices < 1 {
		return fmt.Errorf("device_trust.max_devices must be positive, got %d", c.DeviceTrust.MaxDevices)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "compass-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "compass")
	v.SetDefault("postgres.password", "compass_password")
	v.SetDefault("postgres.database", "compass")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "compass")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "compass")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "compass-auth")
	v.SetDefault("jwt.access_token_ttl", "12h")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.resend_max_attempts", 3)
	v.SetDefault("rate_limit.verify_max_attempts", 10)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.registration_ttl", "10m")
	v.SetDefault("otp.login_ttl", "15m")
	v.SetDefault("otp.max_attempts", 5)

	v.SetDefault("totp.issuer", "COMPASS")
	v.SetDefault("totp.skew", 1)

	v.SetDefault("backup_codes.batch_size", 10)
	v.SetDefault("backup_codes.code_length", 8)

	v.SetDefault("device_trust.ttl", "720h") // 30 days
	v.SetDefault("device_trust.max_devices", 5)
	v.SetDefault("device_trust.sweep_interval", "1h")

	v.SetDefault("challenge.ttl", "5m")

	v.SetDefault("registration.pending_ttl", "24h")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "COMPASS_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
