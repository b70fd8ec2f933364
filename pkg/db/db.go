package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/pkg/config"
)

const applicationName = "storefront"

// supavisorTxPort is the transaction-mode port of the Supabase pooler.
const supavisorTxPort = 6543

// Open builds the runtime pool from DATABASE_URL (or the DB_* settings) and pings it once.
func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func poolConfig(cfg config.Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(runtimeConnString(cfg))
	if err != nil {
		// The parse error can echo the DSN, password included.
		return nil, errors.New("parse database url: invalid connection string")
	}

	cc := pcfg.ConnConfig
	// pgbouncer=true is a client hint, not a server setting; postgres rejects it at startup.
	_, hinted := cc.RuntimeParams["pgbouncer"]
	delete(cc.RuntimeParams, "pgbouncer")
	if hinted || cc.Port == supavisorTxPort {
		// Transaction poolers cannot hold prepared statements across checkouts.
		cc.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		cc.StatementCacheCapacity = 0
		cc.DescriptionCacheCapacity = 0
	}
	if cc.RuntimeParams["application_name"] == "" {
		cc.RuntimeParams["application_name"] = applicationName
	}
	if cfg.DB.MaxConns > 0 {
		pcfg.MaxConns = cfg.DB.MaxConns
	}
	return pcfg, nil
}

// Beginner is satisfied by *pgxpool.Pool and pgx.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn in a transaction and commits when fn returns nil. Any error rolls back.
func WithTx(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func runtimeConnString(cfg config.Config) string {
	if u := strings.TrimSpace(cfg.DatabaseURL); u != "" {
		return u
	}
	return dsn(cfg.DB)
}

// migrationConnString prefers DIRECT_URL: schema changes need a session, which the
// transaction pooler behind DATABASE_URL does not give.
func migrationConnString(cfg config.Config) string {
	if u := strings.TrimSpace(cfg.DirectURL); u != "" {
		return u
	}
	return runtimeConnString(cfg)
}

func dsn(c config.DBConfig) string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}
