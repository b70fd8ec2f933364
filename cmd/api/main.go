package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/audit"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/httpapi"
	"storefront/internal/session"
	"storefront/internal/sessioncache"
	"storefront/pkg/config"
	"storefront/pkg/db"
	"storefront/pkg/supabase"
)

func main() {
	cfg := config.Load()
	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		fatal(logger, "db open", err)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			fatal(logger, "migrate", err)
		}
	}

	routes := session.DefaultRoutes()
	if cfg.Session.RoutesFile != "" {
		routes, err = session.LoadRoutesFile(cfg.Session.RoutesFile)
		if err != nil {
			fatal(logger, "load routes", err)
		}
	}

	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		logger.Warn("SUPABASE_URL or SUPABASE_ANON_KEY not set; every session will be rejected")
	}
	authClient := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.JWTSecret)

	sessions, closeCache, err := newSessionValidator(ctx, cfg.Session, authClient, logger)
	if err != nil {
		fatal(logger, "session cache", err)
	}
	defer closeCache()

	cookie := session.DefaultCookieAttributes
	cookie.Secure = cfg.Session.CookieSecure

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		Logger: logger,
		Gatekeeper: &session.Gatekeeper{
			Auth:           sessions,
			Routes:         routes,
			Cookie:         cookie,
			RefreshTimeout: cfg.Session.RefreshTimeout,
			Logger:         logger,
		},
		Auth:    authClient,
		Catalog: catalog.NewRepository(conn, logger),
		Cart:    cart.NewRepository(conn),
		Audit:   audit.NewRepository(conn),
		Ready:   conn.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "http serve", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	logger.Info("http stopped")
}

// newSessionValidator wraps the auth client in the configured session cache.
func newSessionValidator(ctx context.Context, cfg config.SessionConfig, next session.AuthService, logger *slog.Logger) (session.AuthService, func(), error) {
	noop := func() {}

	switch cfg.Cache {
	case "", "none":
		return next, noop, nil
	case "redis":
		store, err := sessioncache.NewRedisStoreFromURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis session cache unreachable; continuing uncached until it recovers", "err", err)
		}
		logger.Info("session cache enabled", "backend", "redis", "ttl", cfg.CacheTTL)
		return &sessioncache.Cache{Next: next, Store: store, TTL: cfg.CacheTTL, Logger: logger},
			func() { _ = store.Close() }, nil
	case "memcached":
		store := sessioncache.NewMemcachedStore(cfg.MemcachedServers...)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("memcached session cache unreachable; continuing uncached until it recovers", "err", err)
		}
		logger.Info("session cache enabled", "backend", "memcached", "ttl", cfg.CacheTTL)
		return &sessioncache.Cache{Next: next, Store: store, TTL: cfg.CacheTTL, Logger: logger}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown SESSION_CACHE %q (want none, redis or memcached)", cfg.Cache)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
