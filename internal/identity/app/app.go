package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/noteloom/noteloom/internal/identity/http"
	"github.com/noteloom/noteloom/internal/identity/provider"
	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/internal/identity/store"
	"github.com/noteloom/noteloom/internal/identity/store/drivers/sqlite"
	"github.com/noteloom/noteloom/pkg/cryptox"
	"github.com/noteloom/noteloom/pkg/sessionx"
	"github.com/noteloom/noteloom/pkg/slogx"
	"github.com/noteloom/noteloom/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	rdb   *redis.Client
	cache *sessionx.Store
	codec tokenx.Codec

	authService      *service.AuthService
	emailCodeService *service.EmailCodeService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initCodec(); err != nil {
		_ = app.db.Close()
		_ = app.rdb.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"token_alg", app.codec.Alg(),
	)

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

// Shutdown drains in-flight requests and closes the backing stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.rdb.Close(); err != nil {
		app.logger.Error("error closing redis client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initCache() error {
	app.rdb = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.cache = sessionx.NewStore(app.rdb)

	// Fail fast: without the session cache no token can be issued or
	// revoked, so there is no degraded mode worth starting in.
	if err := app.cache.Ping(context.Background()); err != nil {
		return fmt.Errorf("session cache unreachable at %s: %w", app.cfg.RedisAddr, err)
	}
	return nil
}

func (app *Application) initCodec() error {
	tcfg := tokenx.Config{Issuer: app.cfg.Issuer, Secret: app.cfg.JWTSecret}
	if app.cfg.JWTPrivateKeyFile != "" {
		pem, err := os.ReadFile(app.cfg.JWTPrivateKeyFile)
		if err != nil {
			return fmt.Errorf("read private key: %w", err)
		}
		tcfg = tokenx.Config{Issuer: app.cfg.Issuer, PrivateKeyPEM: pem}
	}

	codec, err := tokenx.FromConfig(tcfg)
	if err != nil {
		return err
	}
	app.codec = codec
	return nil
}

func (app *Application) initServices() {
	issuer := &service.TokenIssuer{
		Codec:      app.codec,
		Cache:      app.cache,
		Users:      app.db.Users(),
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.authService = &service.AuthService{
		Issuer:         issuer,
		Users:          app.db.Users(),
		Cache:          app.cache,
		Providers:      app.buildProviders(),
		Logger:         app.logger,
		RequireCaptcha: app.cfg.RequireCaptcha,
	}

	app.emailCodeService = &service.EmailCodeService{
		Cache:  app.cache,
		Mailer: service.LogMailer{Logger: app.logger},
		TTL:    app.cfg.EmailCodeTTL,
	}
}

// buildProviders activates every provider whose client id is configured.
func (app *Application) buildProviders() provider.Set {
	var resolvers []provider.Resolver
	if app.cfg.GitHubClientID != "" {
		resolvers = append(resolvers, provider.NewGitHub(provider.GitHubConfig{
			ClientID:     app.cfg.GitHubClientID,
			ClientSecret: app.cfg.GitHubClientSecret,
			RedirectURL:  app.cfg.GitHubRedirectURL,
		}))
	}
	if app.cfg.QQClientID != "" {
		resolvers = append(resolvers, provider.NewQQ(provider.QQConfig{
			ClientID:     app.cfg.QQClientID,
			ClientSecret: app.cfg.QQClientSecret,
			RedirectURL:  app.cfg.QQRedirectURL,
		}))
	}
	if app.cfg.WeChatAppID != "" {
		resolvers = append(resolvers, provider.NewWeChat(provider.WeChatConfig{
			AppID:       app.cfg.WeChatAppID,
			AppSecret:   app.cfg.WeChatAppSecret,
			RedirectURL: app.cfg.WeChatRedirectURL,
		}))
	}
	return provider.NewSet(resolvers...)
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, app.db, app.cache, app.logger)
	app.router.AuthService = app.authService
	app.router.EmailCodeService = app.emailCodeService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
