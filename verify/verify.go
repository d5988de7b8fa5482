// Package verify provides email/password registration with emailed
// verification codes as an embeddable library.
//
// Setup:
//
//  1. Run the migrations embedded in pkg/repository (or call repository.Migrate)
//  2. Create a Verifier and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	v, err := verify.New(verify.Config{
//	    DB:     db,
//	    Sender: mySMTPSender,
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	http.ListenAndServe(":8080", v.Handler())
//
// Leaving DB nil keeps accounts in memory, which is only suitable for tests
// and local development.
package verify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tendant/simple-verify/internal/config"
	apphttp "github.com/tendant/simple-verify/internal/http"
	"github.com/tendant/simple-verify/internal/httputil"
	"github.com/tendant/simple-verify/internal/monitoring"
	"github.com/tendant/simple-verify/internal/notification"
	"github.com/tendant/simple-verify/pkg/auth"
	"github.com/tendant/simple-verify/pkg/domain"
	"github.com/tendant/simple-verify/pkg/repository"
)

// Config holds the configuration for the verification library.
type Config struct {
	// DB is the database connection. Nil selects in-memory stores.
	DB *sql.DB

	// Sender delivers codes (default: codes are written to Logger).
	Sender auth.CodeSender

	// SendStore overrides where resend cooldowns are kept, e.g. a
	// repository.RedisEmailSendsRepository shared between replicas.
	SendStore auth.EmailSendStore

	// TokenTTL is the lifetime of a code (default: 24 hours).
	TokenTTL time.Duration

	// ResendInterval is the minimum gap between mails to one address (default: 1 minute).
	ResendInterval time.Duration

	// MinPasswordLength is the shortest accepted password (default: 8).
	MinPasswordLength int

	// Metrics enables Prometheus collectors and serves them on /metrics.
	Metrics bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// validationConfig is shared by registration and the request size limit.
var validationConfig = config.ValidationConfig{StrictEmailValidation: true, MaxRequestBodySize: 1 << 20}

// Verifier is the main library instance.
type Verifier struct {
	config              Config
	metrics             *monitoring.Module
	passwordService     *auth.PasswordService
	registrationService *auth.RegistrationService
	verificationService *auth.VerificationService
}

// New creates a Verifier with the given configuration.
// Returns an error if DB is set and the required tables don't exist.
func New(cfg Config) (*Verifier, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	var (
		users auth.UserStore
		sends auth.EmailSendStore
	)
	if cfg.DB != nil {
		if err := validateSchema(cfg.DB); err != nil {
			return nil, err
		}
		users = repository.NewUsersRepository(cfg.DB)
		sends = repository.NewEmailSendsRepository(cfg.DB)
	} else {
		users = repository.NewMemoryUsersRepository()
		sends = repository.NewMemoryEmailSendsRepository()
	}
	if cfg.SendStore != nil {
		sends = cfg.SendStore
	}

	opts := []auth.VerificationOption{auth.WithLogger(cfg.Logger)}

	var metrics *monitoring.Module
	if cfg.Metrics {
		m, err := monitoring.NewModule(monitoring.Options{})
		if err != nil {
			return nil, fmt.Errorf("verify: failed to create metrics: %w", err)
		}
		metrics = m
		opts = append(opts, auth.WithMetrics(m))
	}

	policy := auth.NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: cfg.MinPasswordLength})
	passwordService := auth.NewPasswordService(users, policy, auth.NewEmailRules(validationConfig))
	verificationService := auth.NewVerificationService(
		auth.VerificationConfig{TokenTTL: cfg.TokenTTL},
		users,
		auth.NewSendLimiter(sends, cfg.ResendInterval),
		cfg.Sender,
		opts...,
	)

	return &Verifier{
		config:              cfg,
		metrics:             metrics,
		passwordService:     passwordService,
		registrationService: auth.NewRegistrationService(passwordService, verificationService),
		verificationService: verificationService,
	}, nil
}

// Handler returns the HTTP handler serving every endpoint:
//
//	POST /api/auth/register             - Register and mail a code
//	POST /api/auth/verify-email         - Submit a code
//	POST /api/auth/resend-verification  - Mail a fresh code
//	POST /api/auth/check-verification   - Report verification status
//	POST /api/auth/sync                 - Check credentials of a verified account
//	GET  /health                        - Liveness (pings DB when set)
//	GET  /metrics                       - Prometheus (when Metrics is set)
func (v *Verifier) Handler() http.Handler {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Logger:              v.config.Logger,
		RegistrationService: v.registrationService,
		VerificationService: v.verificationService,
		Metrics:             v.metrics,
		HealthCheck:         v.healthCheck,
		SecurityHeaders:     config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff", FrameOptions: "DENY"},
		Validation:          validationConfig,
	})
}

// Routes registers all endpoints on an http.ServeMux.
//
//	mux := http.NewServeMux()
//	v.Routes(mux)
func (v *Verifier) Routes(mux *http.ServeMux) {
	mux.Handle("/", v.Handler())
}

// HealthHandler returns a standalone health check handler.
func (v *Verifier) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := v.healthCheck(r.Context()); err != nil {
			httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// VerificationService returns the verification service for advanced usage.
func (v *Verifier) VerificationService() *auth.VerificationService {
	return v.verificationService
}

// User represents the verification state of an account.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
}

// GetUser looks up an account by email. Surrounding whitespace is ignored.
func (v *Verifier) GetUser(ctx context.Context, email string) (*User, error) {
	u, err := v.passwordService.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:            u.ID.String(),
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}, nil
}

// IsNotFound reports whether err means the account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound)
}

func (v *Verifier) healthCheck(ctx context.Context) error {
	if v.config.DB == nil {
		return nil
	}
	return v.config.DB.PingContext(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.TokenTTL < 0 {
		return errors.New("verify: TokenTTL must not be negative")
	}
	if cfg.ResendInterval < 0 {
		return errors.New("verify: ResendInterval must not be negative")
	}
	if cfg.MinPasswordLength < 0 {
		return errors.New("verify: MinPasswordLength must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.ResendInterval == 0 {
		cfg.ResendInterval = time.Minute
	}
	if cfg.MinPasswordLength == 0 {
		cfg.MinPasswordLength = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Sender == nil {
		cfg.Sender = notification.NewLogSender(cfg.Logger)
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{"users", "email_sends"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("verify: missing table '%s' - run migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("verify: failed to check schema: %w", err)
		}
	}

	return nil
}
