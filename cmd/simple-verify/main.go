package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-verify/internal/config"
	httpserver "github.com/tendant/simple-verify/internal/http"
	"github.com/tendant/simple-verify/internal/monitoring"
	"github.com/tendant/simple-verify/internal/notification"
	"github.com/tendant/simple-verify/pkg/auth"
	"github.com/tendant/simple-verify/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Initialize repositories
	var (
		db        *sql.DB
		usersRepo auth.UserStore
		sendsRepo auth.EmailSendStore
	)
	switch cfg.Persistence {
	case config.PersistenceMemory:
		usersRepo = repository.NewMemoryUsersRepository()
		sendsRepo = repository.NewMemoryEmailSendsRepository()
		logger.Warn("using in-memory persistence; accounts are lost on restart")
	default:
		db, err = repository.NewDB(repository.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to database")

		if cfg.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := repository.Migrate(ctx, db)
			cancel()
			if err != nil {
				logger.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		}

		usersRepo = repository.NewUsersRepository(db)
		sendsRepo = repository.NewEmailSendsRepository(db)
	}

	// Share resend cooldowns across replicas when Redis is configured
	if cfg.HasRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		sendsRepo = repository.NewRedisEmailSendsRepository(client, cfg.Redis.Prefix, cfg.Verification.ResendInterval)
		logger.Info("redis send store enabled", "addr", cfg.Redis.Addr)
	}

	// Initialize email sender
	var sender auth.CodeSender
	if cfg.HasSMTP() {
		emailService, err := notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			NoTLS:    cfg.SMTP.NoTLS,
			TokenTTL: cfg.Verification.TokenTTL,
		}, logger)
		if err != nil {
			logger.Error("failed to configure email service", "error", err)
			os.Exit(1)
		}
		sender = emailService
		logger.Info("email service enabled", "host", cfg.SMTP.Host)
	} else {
		sender = notification.NewLogSender(logger)
		logger.Warn("SMTP_HOST not set; verification codes will be logged")
	}

	// Initialize metrics
	var metrics *monitoring.Module
	verificationOpts := []auth.VerificationOption{auth.WithLogger(logger)}
	if cfg.MetricsEnabled {
		metrics, err = monitoring.NewModule(monitoring.Options{})
		if err != nil {
			logger.Error("failed to initialize metrics", "error", err)
			os.Exit(1)
		}
		verificationOpts = append(verificationOpts, auth.WithMetrics(metrics))
	}

	// Initialize services
	passwordService := auth.NewPasswordService(
		usersRepo,
		auth.NewPasswordPolicy(cfg.PasswordPolicy),
		auth.NewEmailRules(cfg.Validation),
	)
	verificationService := auth.NewVerificationService(
		auth.VerificationConfig{TokenTTL: cfg.Verification.TokenTTL},
		usersRepo,
		auth.NewSendLimiter(sendsRepo, cfg.Verification.ResendInterval),
		sender,
		verificationOpts...,
	)
	registrationService := auth.NewRegistrationService(passwordService, verificationService)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		RegistrationService: registrationService,
		VerificationService: verificationService,
		Metrics:             metrics,
		HealthCheck: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.PingContext(ctx)
		},
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "persistence", cfg.Persistence)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
