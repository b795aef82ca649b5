package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	timeout     time.Duration
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	catalog  RouteRegistrar
	cart     RouteRegistrar
	checkout RouteRegistrar
	orders   RouteRegistrar
	admin    RouteRegistrar

	sessionMiddlewares []func(http.Handler) http.Handler
	adminMiddlewares   []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the storefront route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Timeout(cfg.timeout))
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		// Catalog reads and admin calls never touch the browser session.
		api.Group(func(public chi.Router) {
			register(public, cfg.catalog, "catalog", "/categories*", "/products*")
		})
		api.Route("/admin", func(admin chi.Router) {
			for _, mw := range cfg.adminMiddlewares {
				if mw != nil {
					admin.Use(mw)
				}
			}
			register(admin, cfg.admin, "admin", "/*")
		})

		api.Group(func(storefront chi.Router) {
			for _, mw := range cfg.sessionMiddlewares {
				if mw != nil {
					storefront.Use(mw)
				}
			}
			register(storefront, cfg.cart, "cart", "/cart*")
			register(storefront, cfg.checkout, "checkout", "/checkout*")
			register(storefront, cfg.orders, "orders", "/orders*")
		})
	})

	return r
}

// register mounts registrar, or answers 501 on patterns when the group is not configured.
func register(r chi.Router, registrar RouteRegistrar, name string, patterns ...string) {
	if registrar != nil {
		registrar(r)
		return
	}
	notImplemented := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not configured", name), http.StatusNotImplemented))
	}
	for _, pattern := range patterns {
		r.HandleFunc(pattern, notImplemented)
	}
}

// WithMiddlewares appends global middleware after RequestID, RealIP and Timeout.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithRequestTimeout overrides the per-request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(cfg *routerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithSessionMiddleware sets the middleware that attaches browser state to cart, checkout and order routes.
// Any further middleware runs inside it and can read the session.
func WithSessionMiddleware(sessionMW func(http.Handler) http.Handler, inner ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.sessionMiddlewares = append([]func(http.Handler) http.Handler{sessionMW}, inner...)
	}
}

// WithCatalogRoutes configures the public catalog endpoints.
func WithCatalogRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = reg
	}
}

// WithCartRoutes configures the session cart endpoints.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = reg
	}
}

// WithCheckoutRoutes configures the checkout wizard endpoints.
func WithCheckoutRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.checkout = reg
	}
}

// WithOrderRoutes configures the quick order endpoint.
func WithOrderRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.orders = reg
	}
}

// WithAdminRoutes configures the admin console endpoints and the middleware guarding them.
func WithAdminRoutes(reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.admin = reg
		cfg.adminMiddlewares = append(cfg.adminMiddlewares, mw...)
	}
}
