package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noteloom/noteloom/internal/gateway/filter"
	"github.com/noteloom/noteloom/pkg/httpx"
	"github.com/noteloom/noteloom/pkg/sessionx"
	"github.com/noteloom/noteloom/pkg/slogx"
	"github.com/noteloom/noteloom/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the edge gateway: the verification filter chain in front
// of a reverse proxy to the downstream service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	rdb   *redis.Client
	cache *sessionx.Store
	codec tokenx.Codec

	server *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initCache(); err != nil {
		return nil, err
	}
	if err := app.initCodec(); err != nil {
		_ = app.rdb.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.rdb.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the gateway and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"token_alg", app.codec.Alg(),
		"downstream", app.cfg.DownstreamURL,
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

// Shutdown drains in-flight requests and closes the cache client.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

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
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

func (app *Application) initCache() error {
	app.rdb = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.cache = sessionx.NewStore(app.rdb)

	// Without the session store every bearer token would be rejected,
	// so refuse to start instead of serving guaranteed 401s.
	if err := app.cache.Ping(context.Background()); err != nil {
		return fmt.Errorf("session cache unreachable at %s: %w", app.cfg.RedisAddr, err)
	}
	return nil
}

func (app *Application) initCodec() error {
	tcfg := tokenx.Config{Issuer: app.cfg.Issuer, Secret: app.cfg.JWTSecret}
	if app.cfg.JWTPublicKeyFile != "" {
		pem, err := os.ReadFile(app.cfg.JWTPublicKeyFile)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}
		tcfg = tokenx.Config{Issuer: app.cfg.Issuer, PublicKeyPEM: pem}
	}

	codec, err := tokenx.FromConfig(tcfg)
	if err != nil {
		return err
	}
	app.codec = codec
	return nil
}

func (app *Application) initHTTP() error {
	downstream, err := url.Parse(app.cfg.DownstreamURL)
	if err != nil {
		return fmt.Errorf("parse downstream url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(downstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		app.logger.Error("downstream unreachable", "error", err, "path", r.URL.Path)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	blacklist := filter.NewBlacklist(app.cfg.Blacklist, app.logger)
	auth := &filter.Auth{
		Codec:      app.codec,
		Cache:      app.cache,
		Logger:     app.logger,
		Allowlist:  app.cfg.Allowlist,
		SessionTTL: app.cfg.SessionTTL,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /livez", livezHandler())
	mux.Handle("GET /readyz", app.readyzHandler())

	// Blacklist and auth must run before sanitation and logging: never
	// sanitize or log a request that should have been blocked.
	mux.Handle("/", httpx.Chain(proxy,
		blacklist.Middleware(),
		auth.Middleware(),
		filter.SanitizeQuery(),
		filter.AccessLog(app.logger),
	))

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: slogx.HTTPMiddleware(app.logger)(mux),
	}
	return nil
}

func livezHandler() http.HandlerFunc {
	start := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"uptime":  time.Since(start).String(),
			"version": BuildVersion,
		})
	}
}

func (app *Application) readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.cache.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
