package cart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront/internal/api"
)

type Store interface {
	AddItem(ctx context.Context, userID, priceID string, quantity int) (int, error)
	DeleteItem(ctx context.Context, userID, itemID string) error
	ListByUser(ctx context.Context, userID string) ([]Item, error)
}

const maxQuantity = 99

type Handlers struct {
	Repo   Store
	Logger *slog.Logger
}

// AddItem handles the add-to-cart form post (priceId, optional quantity).
func (h Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	priceID := strings.TrimSpace(r.PostForm.Get("priceId"))
	if priceID == "" {
		http.Error(w, "Price Id not provided", http.StatusBadRequest)
		return
	}
	quantity := 1
	if raw := strings.TrimSpace(r.PostForm.Get("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxQuantity {
			http.Error(w, "Invalid quantity", http.StatusBadRequest)
			return
		}
		quantity = n
	}

	total, err := h.Repo.AddItem(r.Context(), id.UserID, priceID, quantity)
	if errors.Is(err, ErrUnknownPrice) {
		http.Error(w, "Unknown price", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger().Error("add cart item failed", "user_id", id.UserID, "price_id", priceID, "err", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	h.logger().Info("cart item added", "user_id", id.UserID, "price_id", priceID, "quantity", total)

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (h Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	itemID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(itemID); err != nil {
		http.Error(w, "Invalid cart item id", http.StatusBadRequest)
		return
	}

	err := h.Repo.DeleteItem(r.Context(), id.UserID, itemID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Cart item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger().Error("delete cart item failed", "user_id", id.UserID, "item_id", itemID, "err", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// List is the JSON view of the caller's cart. It sits behind api.RequireIdentity.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
		return
	}
	items, err := h.Repo.ListByUser(r.Context(), id.UserID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"items":     items,
		"subtotals": Subtotals(items),
	})
}

func (h Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
