package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront/pkg/config"
	"storefront/pkg/db"
)

// migrate applies, rolls back or reports the storefront schema. Connection strings come from
// the same env as the server; DIRECT_URL wins for schema work.
func main() {
	var (
		path     = flag.String("path", "", "migrations source (defaults to MIGRATIONS_PATH or file://migrations)")
		rollback = flag.Int("rollback", 0, "revert this many migrations instead of applying")
		version  = flag.Bool("version", false, "print the applied schema version and exit")
	)
	flag.Parse()

	cfg := config.Load()
	src := *path
	if src == "" {
		src = cfg.MigrationsPath
	}
	if src == "" {
		src = "file://migrations"
	}

	switch {
	case *version:
		v, dirty, ok, err := db.Version(src, cfg)
		if err != nil {
			fail("read version", err)
		}
		if !ok {
			fmt.Println("schema version: none")
			return
		}
		fmt.Printf("schema version: %d (dirty=%t)\n", v, dirty)
		return

	case *rollback > 0:
		if err := db.Rollback(src, cfg, *rollback); err != nil {
			fail("rollback", err)
		}
		fmt.Printf("rolled back %d migration(s)\n", *rollback)
		return
	}

	if err := db.Migrate(src, cfg); err != nil {
		fail("migrate", err)
	}

	// The server connects through DATABASE_URL, which may be a different endpoint.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fail("open runtime pool", err)
	}
	pool.Close()

	if v, dirty, ok, err := db.Version(src, cfg); err == nil && ok {
		fmt.Printf("migrations applied, schema version %d (dirty=%t)\n", v, dirty)
		return
	}
	fmt.Println("migrations applied")
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", step, err)
	os.Exit(1)
}
