package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
)

type AdminRouter struct {
	queue *controllers.QueueController
	users map[string]string
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	if len(h.users) == 0 {
		log.Warn("[Router] no admin credentials configured, /admin and /metrics are disabled")
		return
	}
	auth := basicauth.New(basicauth.Config{Users: h.users})

	// fiber metrics
	app.Get("/metrics", auth, monitor.New())

	adminGroup := app.Group("/admin", auth)
	adminGroup.Get("/queue", h.queue.HandleQueueStats)
}

func NewAdminRouter(queue *controllers.QueueController, users map[string]string) *AdminRouter {
	return &AdminRouter{queue: queue, users: users}
}
