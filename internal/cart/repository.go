package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("cart item not found")
	ErrUnknownPrice = errors.New("unknown price")
	ErrInvalidUser  = errors.New("invalid user id")
)

type Item struct {
	ID          string  `json:"id"`
	PriceID     string  `json:"priceId"`
	Quantity    int     `json:"quantity"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Image       *string `json:"image"`
	Currency    string  `json:"currency"`
	UnitAmount  *int64  `json:"unitAmount"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AddItem adds quantity of a price to the user's cart, merging with an existing line, and
// returns the resulting quantity.
func (r *Repository) AddItem(ctx context.Context, userID, priceID string, quantity int) (int, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, ErrInvalidUser
	}
	const q = `
INSERT INTO cart_items (user_id, price_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, price_id) DO UPDATE SET
  quantity = cart_items.quantity + EXCLUDED.quantity,
  updated_at = NOW()
RETURNING quantity
`
	var total int
	if err := r.db.QueryRow(ctx, q, uid, priceID, quantity).Scan(&total); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrUnknownPrice
		}
		return 0, fmt.Errorf("cart item insert/update failed: %w", err)
	}
	return total, nil
}

// DeleteItem removes a line only when it belongs to userID.
func (r *Repository) DeleteItem(ctx context.Context, userID, itemID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrInvalidUser
	}
	iid, err := uuid.Parse(itemID)
	if err != nil {
		return ErrNotFound
	}
	const q = `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, q, iid, uid)
	if err != nil {
		return fmt.Errorf("cart item deletion failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUser
	}
	const q = `
SELECT ci.id::text, ci.price_id, ci.quantity, p.id, p.name, p.image, pr.currency, pr.unit_amount
FROM cart_items ci
JOIN prices pr ON pr.id = ci.price_id
JOIN products p ON p.id = pr.product_id
WHERE ci.user_id = $1
ORDER BY ci.created_at, ci.id
`
	rows, err := r.db.Query(ctx, q, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PriceID, &it.Quantity, &it.ProductID, &it.ProductName, &it.Image, &it.Currency, &it.UnitAmount); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
