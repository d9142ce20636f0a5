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

	httpapi "github.com/openvoot/groupgate/internal/groupgate/http"
	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/internal/groupgate/store/drivers/sqlite"
	"github.com/openvoot/groupgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the authorization server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db            store.Store
	authenticator identity.Authenticator

	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	verifyService       *service.VerifyService
	clientService       *service.ClientService
	approvalService     *service.ApprovalService
	vootService         *service.VootService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "groupgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initAuthenticator(); err != nil {
		return nil, err
	}
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("groupgate starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down groupgate...")

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

	app.logger.Info("groupgate stopped")
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

// initAuthenticator selects the resource-owner authentication mechanism.
// The server never authenticates resource owners itself; "remote" trusts
// identity headers injected by a fronting SSO proxy.
func (app *Application) initAuthenticator() error {
	switch app.cfg.AuthMechanism {
	case "remote":
		app.authenticator = identity.NewRemoteAuthenticator(app.cfg.RemoteUserHdr, app.cfg.RemoteNameHdr)
	case "static":
		app.authenticator = identity.NewStaticAuthenticator(app.cfg.StaticOwnerID, "")
		app.logger.Warn("static resource owner authentication enabled; development use only",
			"owner_id", app.cfg.StaticOwnerID)
	default:
		return fmt.Errorf("unknown auth mechanism %q", app.cfg.AuthMechanism)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	settings := service.Settings{
		AllowUnregisteredClients: app.cfg.AllowUnregisteredClients,
		AllowAllScopes:           app.cfg.AllowAllScopes,
		SupportedScopes:          app.cfg.SupportedScopes,
		AdminResourceOwnerIDs:    app.cfg.AdminResourceOwnerIDs,
		AccessTokenExpiry:        app.cfg.AccessTokenExpiry,
		AllowScopeFiltering:      app.cfg.AllowScopeFiltering,
	}

	app.authorizeService = &service.AuthorizeService{Store: app.db, Settings: settings}
	app.tokenService = &service.TokenService{Store: app.db}
	app.verifyService = &service.VerifyService{Store: app.db}
	app.clientService = &service.ClientService{Store: app.db}
	app.approvalService = &service.ApprovalService{Store: app.db}
	app.vootService = &service.VootService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.authenticator,
		app.logger,
	)

	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.VerifyService = app.verifyService
	router.ClientService = app.clientService
	router.ApprovalService = app.approvalService
	router.VootService = app.vootService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
