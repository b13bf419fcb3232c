// Package server assembles the Fiber application.
package server

import (
	"context"
	"time"

	"toko-checkout/internal/handlers"
	"toko-checkout/internal/metrics"
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// Deps are the services the HTTP API exposes.
type Deps struct {
	Auth      *services.AuthService
	Products  *services.ProductService
	Carts     *services.CartService
	Checkouts *services.CheckoutService
	Payments  *services.PaymentService
	Orders    *services.OrderService
	Profiles  *services.ProfileService

	SessionTTL time.Duration
	Storefront string
	Gatherer   prometheus.Gatherer
	Checks     map[string]HealthCheck
	Logger     *zap.Logger
	// AccessLog enables the request logger middleware.
	AccessLog bool
}

// New builds the application: public auth routes, authenticated API routes under
// /api/v1, /health and /metrics.
func New(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	if d.AccessLog {
		app.Use(logger.New())
	}

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(d.Auth, d.SessionTTL, d.Logger).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(d.Auth, d.Logger))
	handlers.NewProductHandler(d.Products, d.Logger).RegisterRoutes(protected)
	handlers.NewCartHandler(d.Carts, d.Logger).RegisterRoutes(protected)
	handlers.NewCheckoutHandler(d.Checkouts, d.Logger).RegisterRoutes(protected)
	handlers.NewPaymentHandler(d.Payments, d.Storefront, d.Logger).RegisterRoutes(protected)
	handlers.NewOrderHandler(d.Orders, d.Logger).RegisterRoutes(protected)
	if d.Profiles != nil {
		handlers.NewProfileHandler(d.Profiles, d.Logger).RegisterRoutes(protected)
	}

	app.Get("/health", health(d.Checks))
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(d.Gatherer)))
	}
	return app
}

func health(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		deps := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		state := "healthy"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":       state,
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
