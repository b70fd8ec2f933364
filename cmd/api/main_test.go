package main

import (
	"context"
	"log/slog"
	"testing"

	"storefront/internal/sessioncache"
	"storefront/pkg/config"
	"storefront/pkg/supabase"
)

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()
	if !setupLogger(config.LogConfig{Level: "debug"}).Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("debug should be enabled")
	}
	l := setupLogger(config.LogConfig{Level: "warn", Format: "json"})
	if l.Enabled(ctx, slog.LevelInfo) || !l.Enabled(ctx, slog.LevelWarn) {
		t.Fatalf("warn level misconfigured")
	}
	if setupLogger(config.LogConfig{Level: "bogus"}).Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("unknown level should fall back to info")
	}
}

func TestNewSessionValidator(t *testing.T) {
	ctx := context.Background()
	client := supabase.NewClient("http://auth.invalid", "anon", "")
	logger := slog.Default()

	v, closeFn, err := newSessionValidator(ctx, config.SessionConfig{Cache: "none"}, client, logger)
	if err != nil || v != client {
		t.Fatalf("none should return the client itself: %v", err)
	}
	closeFn()

	v, closeFn, err = newSessionValidator(ctx, config.SessionConfig{Cache: "memcached", MemcachedServers: []string{"127.0.0.1:1"}}, client, logger)
	if err != nil {
		t.Fatalf("memcached: %v", err)
	}
	if _, ok := v.(*sessioncache.Cache); !ok {
		t.Fatalf("memcached should wrap in a cache, got %T", v)
	}
	closeFn()

	if _, _, err := newSessionValidator(ctx, config.SessionConfig{Cache: "etcd"}, client, logger); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
