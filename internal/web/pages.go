package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/api"
	"storefront/internal/cart"
	"storefront/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"home", "cart", "account", "signin", "register", "error"} {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

type pageData struct {
	Title     string
	Identity  *api.Identity
	Message   string
	Listings  []catalog.Listing
	Items     []cart.Item
	Subtotals []cart.Subtotal
}

type Handlers struct {
	Catalog catalog.Reader
	Carts   cart.Store
	Logger  *slog.Logger
}

func (h Handlers) Home(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	h.render(w, http.StatusOK, "home", pageData{
		Title:    "Shop",
		Identity: api.IdentityFromContext(r.Context()),
		Listings: listings,
	})
}

func (h Handlers) Cart(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Cart", Identity: api.IdentityFromContext(r.Context())}
	if data.Identity != nil {
		items, err := h.Carts.ListByUser(r.Context(), data.Identity.UserID)
		if err != nil {
			h.fail(w, r, "list cart", err)
			return
		}
		data.Items = items
		data.Subtotals = cart.Subtotals(items)
	}
	h.render(w, http.StatusOK, "cart", data)
}

func (h Handlers) Account(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "account", pageData{Title: "Account", Identity: id})
}

func (h Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "signin", pageData{
		Title:    "Sign in",
		Identity: api.IdentityFromContext(r.Context()),
		Message:  queryMessage(r),
	})
}

func (h Handlers) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", pageData{
		Title:    "Register",
		Identity: api.IdentityFromContext(r.Context()),
		Message:  queryMessage(r),
	})
}

func (h Handlers) Error(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "error", pageData{
		Title:    "Error",
		Identity: api.IdentityFromContext(r.Context()),
		Message:  ErrorMessage(chi.URLParam(r, "code")),
	})
}

func queryMessage(r *http.Request) string {
	q := r.URL.Query()
	if msg := formMessage(q.Get("error")); msg != "" {
		return msg
	}
	return formMessage(q.Get("notice"))
}

// render executes into a buffer first so a template error never leaves a half-written page.
func (h Handlers) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger().Error("render page", "page", name, "err", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger().Error(op, "path", r.URL.Path, "err", err)
	h.render(w, http.StatusInternalServerError, "error", pageData{
		Title:    "Error",
		Identity: api.IdentityFromContext(r.Context()),
		Message:  genericErrorMessage,
	})
}

func (h Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
