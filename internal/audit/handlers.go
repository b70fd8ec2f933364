package audit

import (
	"context"
	"net/http"
	"strconv"

	"storefront/internal/api"
)

type Lister interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type Handlers struct {
	Repo Lister
}

// List returns the most recent catalog mutations, newest first. ?limit= caps the page (default 100).
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Repo.Recent(r.Context(), limit)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}
