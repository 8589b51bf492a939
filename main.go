// Package main provides the main entry point for the Plastiqc accounts service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/plastiqc/accounts/app/handlers"
	"github.com/plastiqc/accounts/app/middleware"
	"github.com/plastiqc/accounts/app/router"
	"github.com/plastiqc/accounts/app/services"
	businessflow "github.com/plastiqc/accounts/business_flow"
	"github.com/plastiqc/accounts/config"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Plastiqc accounts service...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// newAccessLogWriter builds the rotating writer for the HTTP access log.
// Returns nil when file-based access logging is disabled, which leaves the
// request log on stdout.
func newAccessLogWriter(cfg config.LoggingConfig) io.Writer {
	if !cfg.EnableAccessLog || cfg.AccessLogPath == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.AccessLogPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// ensureBootstrapAdmin creates the configured administrator account when no
// account with that username exists yet. Without it a fresh deployment has
// nobody who can approve registrations.
func ensureBootstrapAdmin(db *gorm.DB, cfg *config.ProductionConfig) error {
	if cfg.Bootstrap.AdminUsername == "" {
		return nil
	}

	accountRepo := repository.NewAccountRepository(db)

	existing, err := accountRepo.ByUsername(context.Background(), cfg.Bootstrap.AdminUsername)
	if err != nil {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.AdminPassword), cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	admin := models.Account{
		UUID:          uuid.New(),
		Username:      cfg.Bootstrap.AdminUsername,
		FirstName:     "System",
		LastName:      "Administrator",
		Email:         cfg.Bootstrap.AdminEmail,
		CompanyBranch: models.BranchKawempe,
		CompanyRole:   models.RoleAdmin,
		Section:       models.SectionOther,
		PasswordHash:  string(hash),
		IsActive:      utils.ToPtr(true),
		IsApproved:    utils.ToPtr(true),
		IsStaff:       utils.ToPtr(true),
		IsSuperuser:   utils.ToPtr(true),
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}
	if err := accountRepo.Save(context.Background(), &admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	log.Printf("Bootstrap admin account %q created", cfg.Bootstrap.AdminUsername)
	return nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Ensure the initial administrator exists before serving traffic
	if err := ensureBootstrapAdmin(db, cfg); err != nil {
		return nil, err
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	sessionRepo := repository.NewAccountSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	resetRepo := repository.NewPasswordResetRequestRepository(db)

	// Captcha service for registration and forgot-password
	captchaSvc, err := services.NewCaptchaService(cfg.Captcha.TTL, cfg.Captcha.AnglePad, cfg.Captcha.ImageSizePx)
	if err != nil {
		return nil, err
	}

	// Token revocation is backed by Redis; without Redis revoked tokens
	// simply expire on their own TTL.
	var revocations services.RevocationStore
	if rc != nil {
		revocations = services.NewRedisRevocationStore(rc, cfg.Cache.RedisPrefix)
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		revocations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	registrationFlow := businessflow.NewRegistrationFlow(
		accountRepo,
		auditRepo,
		captchaSvc,
		cfg.Security.BcryptCost,
		db,
	)

	loginFlow := businessflow.NewLoginFlow(
		accountRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		db,
	)

	profileFlow := businessflow.NewProfileFlow(
		accountRepo,
		sessionRepo,
		auditRepo,
		db,
	)

	resetFlow := businessflow.NewPasswordResetFlow(
		accountRepo,
		resetRepo,
		sessionRepo,
		auditRepo,
		captchaSvc,
		cfg.Security.BcryptCost,
		db,
	)

	adminFlow := businessflow.NewAdminAccountFlow(
		accountRepo,
		sessionRepo,
		resetRepo,
		auditRepo,
		db,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(registrationFlow, loginFlow, resetFlow, &cfg.Security)
	profileHandler := handlers.NewProfileHandler(profileFlow, resetFlow, &cfg.Security)
	adminHandler := handlers.NewAdminAccountHandler(adminFlow, resetFlow, &cfg.Security)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, accountRepo, sessionRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		profileHandler,
		adminHandler,
		authMiddleware,
		newAccessLogWriter(cfg.Logging),
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
