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

	httpapi "github.com/aussiebroadwan/idp/internal/idp/http"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity provider with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	keys   *jwtx.KeyPair
	hasher cryptox.PasswordHasher

	// Services
	services            Services
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// Services are the business services behind the HTTP API. The login,
// consent and client management front ends are built on top of them.
type Services struct {
	Tokens         *service.TokenHandler
	Authenticator  *service.TokenAuthenticator
	Credentials    *service.CredentialsService
	Users          *service.UserPasswordAuthenticator
	Clients        *service.ClientAuthenticator
	Authorizations *service.AuthorizationService
	IDTokens       *service.IDTokenIssuer
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "idp",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	hasher, err := cryptox.NewPasswordHasher(cfg.PasswordHasher, cfg.SCrypt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	app.hasher = hasher

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.keys = InitKeys(cfg, app.logger)

	app.initServices()
	if err := app.registerClient(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Services returns the services the application was wired with.
func (app *Application) Services() Services {
	return app.services
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("idp starting", "port", app.cfg.Port, "version", BuildVersion, "base_url", app.cfg.BaseURL)

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
			app.housekeepingService.Stop()
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
	app.logger.Info("shutting down idp...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("idp stopped")
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
	tokens := service.NewTokenHandler(app.db, app.hasher, app.cfg.tokenConfig())
	credentials := service.NewCredentialsService(app.db, app.hasher, app.cfg.PasswordMinLength)

	app.services = Services{
		Tokens:         tokens,
		Authenticator:  &service.TokenAuthenticator{Tokens: tokens},
		Credentials:    credentials,
		Users:          &service.UserPasswordAuthenticator{Store: app.db, Credentials: credentials, Tokens: tokens},
		Clients:        &service.ClientAuthenticator{Credentials: credentials},
		Authorizations: service.NewAuthorizationService(app.db),
		IDTokens:       service.NewIDTokenIssuer(app.keys, app.cfg.Issuer, app.cfg.IDTokenTTL),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		tokens,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// registerClient stores the secret of the client configured through the
// environment, replacing any previous one.
func (app *Application) registerClient(ctx context.Context) error {
	if app.cfg.ClientID == "" {
		return nil
	}
	if err := app.services.Credentials.SetClientSecret(ctx, app.cfg.ClientID, app.cfg.ClientSecret); err != nil {
		return fmt.Errorf("failed to register client %q: %w", app.cfg.ClientID, err)
	}
	app.logger.Info("client registered", "client_id", app.cfg.ClientID)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpapi.Options{
			Issuer:        app.cfg.Issuer,
			BaseURL:       app.cfg.BaseURL,
			PortalURL:     app.cfg.PortalURL,
			BuildVersion:  BuildVersion,
			SecureCookies: app.cfg.SecureCookies(),
		},
		app.keys,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.Tokens = app.services.Tokens
	router.Authenticator = app.services.Authenticator
	router.Clients = app.services.Clients
	router.ApplyRoutes()

	app.router = router

	// Cleartext HTTP/2 for clients behind a TLS-terminating proxy.
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 3 * time.Second,
	}
}
