package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Persistence backends.
const (
	PersistencePostgres = "postgres"
	PersistenceMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	LogLevel   string

	// Persistence
	Persistence string
	AutoMigrate bool

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	Redis           RedisConfig
	SMTP            SMTPConfig
	Verification    VerificationConfig
	PasswordPolicy  PasswordPolicyConfig
	Validation      ValidationConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig

	MetricsEnabled bool
}

// RedisConfig configures the optional shared store for resend cooldowns.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SMTPConfig configures outbound verification mail. An empty Host selects the log sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	NoTLS    bool
}

// VerificationConfig holds verification code settings.
type VerificationConfig struct {
	TokenTTL       time.Duration
	ResendInterval time.Duration
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// ValidationConfig holds input validation settings.
type ValidationConfig struct {
	StrictEmailValidation bool
	BlockDisposableEmail  bool
	MaxRequestBodySize    int64
}

// RateLimitConfig holds per-IP request limits for the HTTP endpoints.
type RateLimitConfig struct {
	Enabled bool

	// register and sync
	AuthRequestsPerMinute int
	AuthWindowMinutes     int

	// verify-email and check-verification
	VerifyRequestsPerWindow int
	VerifyWindowMinutes     int

	// resend-verification
	ResendRequestsPerWindow int
	ResendWindowMinutes     int
}

// SecurityHeadersConfig holds HTTP security header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Persistence: strings.ToLower(getEnv("PERSISTENCE", PersistencePostgres)),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		// Database defaults (matches podman setup: make postgres-start)
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "simple_verify"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "simple-verify"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@example.com"),
			FromName: getEnv("SMTP_FROM_NAME", "Simple Verify"),
			NoTLS:    getEnvBool("SMTP_NO_TLS", false),
		},

		Verification: VerificationConfig{
			TokenTTL:       getEnvDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			ResendInterval: getEnvDuration("VERIFICATION_RESEND_INTERVAL", time.Minute),
		},

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", false),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", false),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", false),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},

		Validation: ValidationConfig{
			StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", true),
			BlockDisposableEmail:  getEnvBool("BLOCK_DISPOSABLE_EMAIL", false),
			MaxRequestBodySize:    int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		},

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:   getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindowMinutes:       getEnvInt("RATE_LIMIT_AUTH_WINDOW_MINUTES", 1),
			VerifyRequestsPerWindow: getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", 20),
			VerifyWindowMinutes:     getEnvInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", 1),
			ResendRequestsPerWindow: getEnvInt("RATE_LIMIT_RESEND_REQUESTS", 5),
			ResendWindowMinutes:     getEnvInt("RATE_LIMIT_RESEND_WINDOW_MINUTES", 15),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "0"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", ""),
		},

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}

	if cfg.Persistence != PersistencePostgres && cfg.Persistence != PersistenceMemory {
		return nil, fmt.Errorf("PERSISTENCE must be %q or %q, got %q", PersistencePostgres, PersistenceMemory, cfg.Persistence)
	}
	if cfg.Verification.TokenTTL <= 0 {
		return nil, fmt.Errorf("VERIFICATION_TOKEN_TTL must be positive")
	}
	if cfg.Verification.ResendInterval <= 0 {
		return nil, fmt.Errorf("VERIFICATION_RESEND_INTERVAL must be positive")
	}

	return cfg, nil
}

// HasSMTP returns true if an SMTP server is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != ""
}

// HasRedis returns true if a Redis address is configured.
func (c *Config) HasRedis() bool {
	return c.Redis.Addr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
