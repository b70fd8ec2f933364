package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/audit"
	"storefront/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool

	fkRetries    int
	fkRetryDelay time.Duration
	logger       *slog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:           pool,
		fkRetries:    defaultFKRetries,
		fkRetryDelay: defaultFKRetryDelay,
		logger:       logger,
	}
}

func (r *Repository) UpsertProduct(ctx context.Context, p Product, actor string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO products (id, active, name, description, image, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  active = EXCLUDED.active,
  name = EXCLUDED.name,
  description = EXCLUDED.description,
  image = EXCLUDED.image,
  metadata = EXCLUDED.metadata,
  updated_at = NOW()
`
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q, p.ID, p.Active, p.Name, p.Description, p.Image, p.Metadata); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, "product.upserted", actor, p.ID, map[string]any{"active": p.Active})
	})
	if err != nil {
		return fmt.Errorf("product insert/update failed: %w", err)
	}
	r.logger.Info("product upserted", "product_id", p.ID)
	return nil
}

// UpsertPrice retries while the referenced product does not exist yet.
func (r *Repository) UpsertPrice(ctx context.Context, p Price, actor string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO prices (id, product_id, active, currency, type, unit_amount)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  product_id = EXCLUDED.product_id,
  active = EXCLUDED.active,
  currency = EXCLUDED.currency,
  type = EXCLUDED.type,
  unit_amount = EXCLUDED.unit_amount,
  updated_at = NOW()
`
	attempt := 0
	err := retryOnForeignKey(ctx, r.fkRetries, r.fkRetryDelay, func() error {
		if attempt > 0 {
			r.logger.Info("retrying price upsert", "attempt", attempt, "price_id", p.ID)
		}
		attempt++
		return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, q, p.ID, p.ProductID, p.Active, p.Currency, p.Type, p.UnitAmount); err != nil {
				return err
			}
			return audit.Insert(ctx, tx, "price.upserted", actor, p.ID, map[string]any{"productId": p.ProductID})
		})
	})
	if err != nil {
		return fmt.Errorf("price insert/update failed: %w", err)
	}
	r.logger.Info("price upserted", "price_id", p.ID)
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id, actor string) error {
	return r.delete(ctx, `DELETE FROM products WHERE id = $1`, "product.deleted", id, actor)
}

func (r *Repository) DeletePrice(ctx context.Context, id, actor string) error {
	return r.delete(ctx, `DELETE FROM prices WHERE id = $1`, "price.deleted", id, actor)
}

func (r *Repository) delete(ctx context.Context, q, action, id, actor string) error {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return audit.Insert(ctx, tx, action, actor, id, nil)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}
	r.logger.Info(action, "id", id)
	return nil
}

func (r *Repository) UpsertCustomer(ctx context.Context, c Customer, actor string) error {
	const q = `
INSERT INTO customers (id, stripe_customer_id)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET
  stripe_customer_id = EXCLUDED.stripe_customer_id
`
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q, c.ID, c.StripeCustomerID); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, "customer.upserted", actor, c.ID, nil)
	})
	if err != nil {
		return fmt.Errorf("customer record creation failed: %w", err)
	}
	return nil
}

// ListActive returns active products that have at least one active price.
func (r *Repository) ListActive(ctx context.Context) ([]Listing, error) {
	const q = `
SELECT p.id, p.active, p.name, p.description, p.image, p.metadata,
       pr.id, pr.product_id, pr.active, pr.currency, pr.type, pr.unit_amount
FROM products p
JOIN prices pr ON pr.product_id = p.id AND pr.active
WHERE p.active
ORDER BY p.name, p.id, pr.unit_amount NULLS LAST, pr.id
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		var (
			p  Product
			pr Price
		)
		if err := rows.Scan(
			&p.ID, &p.Active, &p.Name, &p.Description, &p.Image, &p.Metadata,
			&pr.ID, &pr.ProductID, &pr.Active, &pr.Currency, &pr.Type, &pr.UnitAmount,
		); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == p.ID {
			out[n-1].Prices = append(out[n-1].Prices, pr)
			continue
		}
		out = append(out, Listing{Product: p, Prices: []Price{pr}})
	}
	return out, rows.Err()
}

// GetProduct returns a product with its active prices, or ErrNotFound.
func (r *Repository) GetProduct(ctx context.Context, id string) (*Listing, error) {
	const qp = `
SELECT id, active, name, description, image, metadata
FROM products
WHERE id = $1
`
	l := &Listing{Prices: []Price{}}
	err := r.db.QueryRow(ctx, qp, id).Scan(&l.ID, &l.Active, &l.Name, &l.Description, &l.Image, &l.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	const qr = `
SELECT id, product_id, active, currency, type, unit_amount
FROM prices
WHERE product_id = $1 AND active
ORDER BY unit_amount NULLS LAST, id
`
	rows, err := r.db.Query(ctx, qr, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pr Price
		if err := rows.Scan(&pr.ID, &pr.ProductID, &pr.Active, &pr.Currency, &pr.Type, &pr.UnitAmount); err != nil {
			return nil, err
		}
		l.Prices = append(l.Prices, pr)
	}
	return l, rows.Err()
}
