package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/internal/api"
	"storefront/internal/audit"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/session"
	"storefront/internal/web"
	"storefront/pkg/config"
)

type CatalogStore interface {
	catalog.Reader
	catalog.Writer
}

type Dependencies struct {
	Cfg        config.Config
	Logger     *slog.Logger
	Gatekeeper *session.Gatekeeper
	Auth       auth.Authenticator
	Catalog    CatalogStore
	Cart       cart.Store
	Audit      audit.Lister

	// Ready backs /readyz, usually a database ping.
	Ready func(ctx context.Context) error
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	// Gate every request, routed or not.
	r.Use(deps.Gatekeeper.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				api.WriteError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	pageHandlers := web.Handlers{Catalog: deps.Catalog, Carts: deps.Cart, Logger: logger}
	authHandlers := auth.Handlers{Auth: deps.Auth, Cookie: deps.Gatekeeper.Cookie, Logger: logger}
	catalogHandlers := catalog.Handlers{Repo: deps.Catalog}
	adminHandlers := catalog.AdminHandlers{Repo: deps.Catalog, Logger: logger}
	auditHandlers := audit.Handlers{Repo: deps.Audit}
	cartHandlers := cart.Handlers{Repo: deps.Cart, Logger: logger}

	// Pages
	r.Get("/", pageHandlers.Home)
	r.Get("/cart", pageHandlers.Cart)
	r.Get("/account", pageHandlers.Account)
	r.Get("/signin", pageHandlers.SignIn)
	r.Get("/register", pageHandlers.Register)
	r.Get("/error/{code}", pageHandlers.Error)

	r.Route("/api", func(r chi.Router) {
		// Auth forms
		r.Post("/auth/signin", authHandlers.SignIn)
		r.Post("/auth/register", authHandlers.Register)
		r.Get("/auth/signout", authHandlers.SignOut)

		// Cart forms are scoped by the identity the gatekeeper attached.
		r.Post("/cart/add-item", cartHandlers.AddItem)
		r.Post("/cart/items/{id}/delete", cartHandlers.DeleteItem)
		r.With(api.RequireIdentity).Get("/cart", cartHandlers.List)

		// Public catalog, readable from the configured frontend origins.
		r.Group(func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.PublicAPIAllowedOrigins,
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAgeSeconds:  600,
			}))
			r.Get("/products", catalogHandlers.List)
			r.Get("/products/{id}", catalogHandlers.Get)
			// Preflights are answered by the CORS middleware.
			r.Options("/products", http.NotFound)
			r.Options("/products/{id}", http.NotFound)
		})

		// Catalog sync from the payment provider.
		r.Route("/admin", func(r chi.Router) {
			r.Use(api.AdminKeyAuth(deps.Cfg.AdminAPIKey))
			r.Put("/products/{id}", adminHandlers.PutProduct)
			r.Delete("/products/{id}", adminHandlers.DeleteProduct)
			r.Put("/prices/{id}", adminHandlers.PutPrice)
			r.Delete("/prices/{id}", adminHandlers.DeletePrice)
			r.Put("/customers/{id}", adminHandlers.PutCustomer)
			r.Get("/audit", auditHandlers.List)
		})
	})

	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
