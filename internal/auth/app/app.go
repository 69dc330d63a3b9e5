package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/gatekeep/internal/auth/http"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	// Services
	authService      *service.AuthService
	otpService       *service.OTPService
	resetService     *service.ResetService
	userService      *service.UserService
	rolesService     *service.RolesService
	attemptsService  *service.AttemptsService
	bootstrapService *service.BootstrapService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeep",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("gatekeep starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeep...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeep stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:              app.db,
		MaxFailedAttempts:  app.cfg.MaxFailedAttempts,
		LockDuration:       app.cfg.LockDuration,
		SessionLockTimeout: app.cfg.SessionLockTimeout,
		OTPWindow:          app.cfg.OTPWindow,
	}
	app.otpService = &service.OTPService{
		Store:  app.db,
		Auth:   app.authService,
		Issuer: app.cfg.Issuer,
	}
	app.resetService = &service.ResetService{
		Store:    app.db,
		Mailer:   service.LogMailer{},
		TokenTTL: app.cfg.ResetTokenTTL,
	}
	app.userService = &service.UserService{Store: app.db}
	app.rolesService = &service.RolesService{Store: app.db}
	app.attemptsService = &service.AttemptsService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Users: app.userService,
		Token: app.cfg.BootstrapToken,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.OTPService = app.otpService
	router.ResetService = app.resetService
	router.UserService = app.userService
	router.RolesService = app.rolesService
	router.AttemptsService = app.attemptsService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
