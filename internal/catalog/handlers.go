package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storefront/internal/api"
)

type Reader interface {
	ListActive(ctx context.Context) ([]Listing, error)
	GetProduct(ctx context.Context, id string) (*Listing, error)
}

type Writer interface {
	UpsertProduct(ctx context.Context, p Product, actor string) error
	UpsertPrice(ctx context.Context, p Price, actor string) error
	DeleteProduct(ctx context.Context, id, actor string) error
	DeletePrice(ctx context.Context, id, actor string) error
	UpsertCustomer(ctx context.Context, c Customer, actor string) error
}

type Handlers struct {
	Repo Reader
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.ListActive(r.Context())
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := h.Repo.GetProduct(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, l)
}

// AdminHandlers mirror the payment provider's catalog into the store. They sit behind
// api.AdminKeyAuth.
type AdminHandlers struct {
	Repo   Writer
	Logger *slog.Logger
}

const adminActor = "admin-api"

func (h AdminHandlers) PutProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	p := in.ToProduct(chi.URLParam(r, "id"))
	h.respond(w, p.ID, h.Repo.UpsertProduct(r.Context(), p, adminActor))
}

func (h AdminHandlers) PutPrice(w http.ResponseWriter, r *http.Request) {
	var in PriceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	p := in.ToPrice(chi.URLParam(r, "id"))
	h.respond(w, p.ID, h.Repo.UpsertPrice(r.Context(), p, adminActor))
}

func (h AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respond(w, id, h.Repo.DeleteProduct(r.Context(), id, adminActor))
}

func (h AdminHandlers) DeletePrice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respond(w, id, h.Repo.DeletePrice(r.Context(), id, adminActor))
}

type customerRequest struct {
	StripeCustomerID string `json:"stripeCustomerId"`
}

func (h AdminHandlers) PutCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id must be a uuid")
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	req.StripeCustomerID = strings.TrimSpace(req.StripeCustomerID)
	if req.StripeCustomerID == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "stripeCustomerId is required")
		return
	}
	c := Customer{ID: id, StripeCustomerID: req.StripeCustomerID}
	h.respond(w, id, h.Repo.UpsertCustomer(r.Context(), c, adminActor))
}

func (h AdminHandlers) respond(w http.ResponseWriter, id string, err error) {
	var vErr ValidationError
	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "ok": true})
	case errors.As(err, &vErr):
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", vErr.Error())
	case errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	default:
		h.logger().Error("catalog write failed", "id", id, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func (h AdminHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
