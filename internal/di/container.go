package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fastpix01-lab/fruitamruth/internal/checkout"
	"github.com/fastpix01-lab/fruitamruth/internal/handlers"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/auth"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/config"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/idempotency"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/observability"
	"github.com/fastpix01-lab/fruitamruth/internal/repositories"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
	"github.com/fastpix01-lab/fruitamruth/internal/session"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog services.CatalogService
	Orders  services.OrderService
	System  services.SystemService
}

// Container wires repositories, services and the HTTP surface for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Wizard       *checkout.Wizard
	Sessions     *session.Manager
	Handler      http.Handler

	closers []func(context.Context) error
}

// NewContainer constructs the runtime dependencies on top of infra. Tests supply in-memory
// registries and stores; production wiring comes from NewInfrastructure.
func NewContainer(ctx context.Context, cfg config.Config, infra Infrastructure) (*Container, error) {
	if infra.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if infra.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	logger := infra.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}

	svc, err := buildServices(infra.Registry, cfg, infra, logger, clock)
	if err != nil {
		return nil, err
	}

	wizard, err := checkout.NewWizard(checkout.WizardDeps{
		Orders:       svc.Orders,
		GatewayDelay: cfg.Checkout.GatewayDelay,
		Clock:        clock,
		Logger:       observability.EventLogger(logger, "checkout"),
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout wizard: %w", err)
	}

	codec, err := session.NewTokenCodec(cfg.Session.SigningKey, cfg.Session.TTL, clock)
	if err != nil {
		return nil, fmt.Errorf("build session codec: %w", err)
	}
	manager, err := session.NewManager(session.ManagerDeps{
		Store:        infra.Sessions,
		Codec:        codec,
		CookieName:   cfg.Session.CookieName,
		TTL:          cfg.Session.TTL,
		SecureCookie: cfg.Session.SecureCookie,
		Clock:        clock,
		Logger:       observability.EventLogger(logger, "session"),
	})
	if err != nil {
		return nil, fmt.Errorf("build session manager: %w", err)
	}

	c := &Container{
		Config:       cfg,
		Repositories: infra.Registry,
		Services:     svc,
		Wizard:       wizard,
		Sessions:     manager,
		closers:      infra.Closers,
	}
	c.Handler = c.buildRouter(infra, logger, clock)
	return c, nil
}

// Close releases repository clients and the infrastructure handed to NewContainer, last opened first.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(reg repositories.Registry, cfg config.Config, infra Infrastructure, logger *zap.Logger, clock func() time.Time) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Categories: reg.Categories(),
		Products:   reg.Products(),
		Images:     infra.Images,
		Clock:      clock,
		Logger:     observability.EventLogger(logger, "catalog"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Products:   reg.Products(),
		Categories: reg.Categories(),
		Events:     infra.Events,
		Reprice:    cfg.Checkout.RepriceOrders,
		Clock:      clock,
		Logger:     observability.EventLogger(logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            infra.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func (c *Container) buildRouter(infra Infrastructure, logger *zap.Logger, clock func() time.Time) http.Handler {
	cfg := c.Config
	limiter := handlers.NewRateLimitMiddleware(cfg.RateLimits.PublicPerMinute, cfg.RateLimits.PublicBurst, clock)
	authenticator := auth.NewAuthenticator(infra.Verifier)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(traceProjectID(cfg)),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(infra.Build),
		handlers.WithHealthClock(clock),
	}
	if c.Services.System != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(c.Services.System))
	}

	catalogHandlers := handlers.NewCatalogHandlers(c.Services.Catalog)
	cartHandlers := handlers.NewCartHandlers(c.Services.Catalog, limiter)
	checkoutHandlers := handlers.NewCheckoutHandlers(c.Wizard)
	orderHandlers := handlers.NewQuickOrderHandlers(c.Services.Orders, limiter)
	adminHandlers := handlers.NewAdminHandlers(c.Services.Catalog, c.Services.Orders,
		handlers.WithMaxUploadBytes(cfg.Storage.MaxImageBytes))

	replays := infra.Replays
	if replays == nil {
		replays = idempotency.NewMemoryStore()
	}
	replay := idempotency.Middleware(replays,
		idempotency.WithTTL(cfg.Checkout.ReplayTTL),
		idempotency.WithClock(clock),
		idempotency.WithScope(sessionScope),
		idempotency.WithLogger(observability.EventLogger(logger, "idempotency")),
	)

	return handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithRequestTimeout(cfg.Server.RequestTimeout),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithSessionMiddleware(c.Sessions.Middleware, replay),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes, authenticator.RequireRole(auth.RoleAdmin)),
	)
}

func sessionScope(r *http.Request) string {
	if state, ok := session.FromContext(r.Context()); ok {
		return state.ID
	}
	return ""
}

func traceProjectID(cfg config.Config) string {
	if cfg.Firebase.ProjectID != "" {
		return cfg.Firebase.ProjectID
	}
	return cfg.Firestore.ProjectID
}
