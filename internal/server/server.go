// Package server assembles the HTTP application from its services.
package server

import (
	"context"
	"errors"
	"time"

	"shopfront/internal/handlers"
	"shopfront/internal/middleware"
	"shopfront/internal/models"
	"shopfront/internal/realtime"
	"shopfront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Logger      *zap.Logger
	Products    *services.ProductService
	Inventory   *services.InventoryService
	Auth        *services.AuthService
	Addresses   *services.AddressService
	Hub         *realtime.Hub
	CORSOrigins string
	Checks      map[string]HealthCheck
}

// New builds the fiber app with middleware and every route mounted.
func New(d Deps) *fiber.App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "shopfront",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: orDefault(d.CORSOrigins, "*"),
		AllowMethods: "GET,POST,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", healthHandler(d.Checks))

	api := app.Group("/api")

	shop := api.Group("/shop")
	handlers.NewShopHandler(d.Products, d.Inventory, d.Hub, logger).RegisterRoutes(shop)
	handlers.NewAuthHandler(d.Auth, logger).RegisterRoutes(shop)

	// Admin routes carry no authentication of their own; deployments put
	// them behind the gateway.
	handlers.NewAdminHandler(d.Products, d.Inventory, logger).RegisterRoutes(api.Group("/admin"))

	addresses := api.Group("/addresses", middleware.AuthRequired(d.Auth, logger))
	handlers.NewAddressHandler(d.Addresses, logger).RegisterRoutes(addresses)

	return app
}

func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "healthy"
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = "unavailable"
				status = "degraded"
				continue
			}
			components[name] = "ok"
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     status,
			"time":       time.Now().Format(time.RFC3339),
			"components": components,
		})
	}
}

// errorHandler renders errors that escaped the handlers, such as unknown
// routes or recovered panics, in the API envelope.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("Unhandled error", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(models.Response{Success: false, Message: message})
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
