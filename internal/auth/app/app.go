package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/chambers/internal/auth/http"
	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/chambers/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/chambers/pkg/cryptox"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/jwtx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns the process-wide dependencies of the auth service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	redis *redis.Client // nil unless REDIS_ADDR is set

	tokenService        *service.TokenService
	userService         *service.UserService
	inviteService       *service.InviteService
	bootstrapService    *service.BootstrapService
	guard               *service.Guard
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds the application from cfg. The store is opened and migrated
// before anything else so a bad database fails fast.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "chambers-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	app.logger.Info("configuration loaded",
		"driver", cfg.DatabaseDriver,
		"algorithm", cfg.Algorithm,
		"token_ttl", cfg.AccessTokenTTL(),
		"password_cost", cfg.PasswordCost,
		"secret_key", slogx.Secret(cfg.SecretKey),
		"bootstrap_enabled", cfg.BootstrapToken != "",
	)

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP(ctx)

	return app, nil
}

// Handler exposes the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, stops background work and closes the
// store. It is safe to call before Run.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.db = db
	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initServices() error {
	key, err := jwtx.NewHMACKey(app.cfg.Algorithm, []byte(app.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("failed to initialize signing key: %w", err)
	}

	hasher := cryptox.NewPasswordHasher(app.cfg.PasswordCost)

	app.tokenService = &service.TokenService{
		Key:    key,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.AccessTokenTTL(),
	}
	app.guard = &service.Guard{Tokens: app.tokenService, Store: app.db}
	app.userService = &service.UserService{
		Store:  app.db,
		Hasher: hasher,
		Tokens: app.tokenService,
	}
	app.inviteService = &service.InviteService{Store: app.db, Hasher: hasher}
	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Hasher: hasher,
		Token:  app.cfg.BootstrapToken,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Retention = app.cfg.ExpiredInviteRetention

	return nil
}

// limiter picks the shared Redis limiter when configured. A Redis that is
// down at startup is logged; the limiter itself fails open.
func (app *Application) limiter(ctx context.Context) httpx.Limiter {
	if app.cfg.RedisAddr == "" {
		return httpx.NewLocalLimiter()
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := app.redis.Ping(pingCtx).Err(); err != nil {
		app.logger.Warn("redis unreachable, rate limits fail open until it recovers",
			"addr", app.cfg.RedisAddr, "error", err)
	} else {
		app.logger.Info("rate limiting backed by redis", "addr", app.cfg.RedisAddr)
	}

	return httpx.NewRedisLimiter(app.redis, "chambers:ratelimit:", app.logger)
}

func (app *Application) initHTTP(ctx context.Context) {
	router := httpapi.NewRouter(app.db, app.logger, httpapi.RouterOptions{
		BuildVersion: BuildVersion,
		Limiter:      app.limiter(ctx),
		Limits:       app.cfg.RateLimits.Profiles(),
		CORS:         httpx.CORSConfig{AllowedOrigins: app.cfg.CORSAllowedOrigins},
	})

	router.Guard = app.guard
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.InviteService = app.inviteService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
