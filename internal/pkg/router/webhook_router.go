package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
)

// WebhookRouter mounts the payment provider callbacks.
type WebhookRouter struct {
	webhook *controllers.WebhookController
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/stripe", h.webhook.HandleStripeWebhook)
}

func NewWebhookRouter(webhook *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhook: webhook}
}
