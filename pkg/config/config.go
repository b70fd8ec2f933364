package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Supabase/hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Supabase SupabaseConfig

	Session SessionConfig

	Log LogConfig

	// AdminAPIKey guards the catalog admin endpoints. Empty disables them.
	AdminAPIKey string

	// PublicAPIAllowedOrigins is a comma-separated allowlist of origins allowed to call
	// the read-only product API from another domain. Example:
	//   https://shop.example.com,http://localhost:4321
	PublicAPIAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// MaxConns caps the runtime pool. Zero keeps the pgx default.
	MaxConns int32
}

type SupabaseConfig struct {
	URL     string
	AnonKey string

	// JWTSecret lets the auth client verify access tokens locally before deciding
	// whether a refresh is needed. Without it the token is only decoded for exp.
	JWTSecret string
}

type SessionConfig struct {
	// RefreshTimeout bounds the auth service round trip made by the gatekeeper.
	RefreshTimeout time.Duration

	// CookieSecure should only be turned off for plain-HTTP local development.
	CookieSecure bool

	// RoutesFile optionally overrides the protected / redirect route patterns (YAML).
	RoutesFile string

	// Cache selects the validated-session cache backend: "none", "redis" or "memcached".
	Cache            string
	CacheTTL         time.Duration
	RedisURL         string
	MemcachedServers []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "storefront"),
			User:     env("DB_USER", "storefront"),
			Password: env("DB_PASSWORD", "storefront"),
			SSLMode:  env("DB_SSLMODE", "disable"),
			MaxConns: int32(envInt("DB_MAX_CONNS", 0)),
		},
		Supabase: SupabaseConfig{
			URL:       strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			AnonKey:   os.Getenv("SUPABASE_ANON_KEY"),
			JWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
		},
		Session: SessionConfig{
			RefreshTimeout:   envDuration("AUTH_REFRESH_TIMEOUT", 5*time.Second),
			CookieSecure:     envBool("COOKIE_SECURE", true),
			RoutesFile:       os.Getenv("ROUTES_FILE"),
			Cache:            strings.ToLower(env("SESSION_CACHE", "none")),
			CacheTTL:         envDuration("SESSION_CACHE_TTL", 30*time.Second),
			RedisURL:         env("REDIS_URL", "redis://localhost:6379/0"),
			MemcachedServers: envList("MEMCACHED_SERVERS", "localhost:11211"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(env("LOG_LEVEL", "info")),
			Format: strings.ToLower(env("LOG_FORMAT", "text")),
		},
		AdminAPIKey:             os.Getenv("ADMIN_API_KEY"),
		PublicAPIAllowedOrigins: envList("PUBLIC_API_ALLOWED_ORIGINS", "http://localhost:4321"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
