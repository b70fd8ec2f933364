package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultFKRetries    = 3
	defaultFKRetryDelay = 2 * time.Second
)

// A price can arrive before its product; the product write usually lands within seconds.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// retryOnForeignKey runs fn, retrying up to maxRetries times while it fails with a foreign key
// violation. Other errors are returned immediately.
func retryOnForeignKey(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isForeignKeyViolation(err) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("after %d retries: %w", maxRetries, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
