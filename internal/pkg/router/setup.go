package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers bundles the HTTP handlers the routers mount.
type Controllers struct {
	Webhook  *controllers.WebhookController
	Checkout *controllers.CheckoutController
	Queue    *controllers.QueueController
}

// Options configures the non-handler parts of the routing table.
type Options struct {
	// LimiterStorage backs the public API rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// AdminUsers are the basic auth credentials for /admin and /metrics.
	// Without any, those routes are not mounted.
	AdminUsers map[string]string
}

func InstallRouter(app *fiber.App, c Controllers, opts Options) {
	// The webhook router goes first so the provider callback is never rate limited.
	setup(app,
		NewWebhookRouter(c.Webhook),
		NewApiRouter(c.Checkout, opts.LimiterStorage),
		NewAdminRouter(c.Queue, opts.AdminUsers),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
