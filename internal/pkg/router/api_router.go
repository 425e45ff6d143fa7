package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
)

const (
	apiRateLimitMax    = 30
	apiRateLimitWindow = time.Minute
)

type ApiRouter struct {
	checkout *controllers.CheckoutController
	storage  fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          apiRateLimitMax,
		Expiration:   apiRateLimitWindow,
		KeyGenerator: controllers.ClientIP,
		Storage:      h.storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Post("/fundraisers/:slug/checkout", h.checkout.HandleFundraiserCheckout)
	v1.Post("/billing/checkout", h.checkout.HandlePlanCheckout)
}

func NewApiRouter(checkout *controllers.CheckoutController, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{checkout: checkout, storage: storage}
}
