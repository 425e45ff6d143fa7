package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/billing"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/cache"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/checkout"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/config"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/database"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/env"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/jobqueue"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/mail"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/router"
)

// Webhook payloads and checkout forms are small.
const bodyLimit = 1 << 20

func main() {
	app, queue := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	queue.Stop()
	if cerr := cache.Close(); cerr != nil {
		log.Warnf("Closing cache: %v", cerr)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Queue) {
	env.SetupEnvFile()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.SetupDatabase()
	if err != nil {
		log.Fatalf("Database unavailable: %v", err)
	}
	cache.SetupCache()

	workers, err := strconv.Atoi(env.GetEnv("NOTIFY_WORKERS", "2"))
	if err != nil || workers < 1 {
		workers = 2
	}
	queue := jobqueue.NewQueue(cache.GetClient(), mail.NewSMTPMailerFromEnv(), workers)
	queue.Start()

	service := billing.NewServiceFromDB(cfg, db, queue)
	builder := checkout.NewBuilder(cfg, checkout.NewFundraiserStore(db), checkout.NewStripeSessionCreator(cfg.StripeSecretKey))

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: env.GetEnv("OPENAPI_FILE", "./public/docs/v1/openapi.yml"),
		Path:     "v1",
	}))

	admins := map[string]string{}
	if pass := env.GetEnv("ADMIN_PASSWORD", ""); pass != "" {
		admins[env.GetEnv("ADMIN_USER", "admin")] = pass
	}

	router.InstallRouter(app, router.Controllers{
		Webhook:  controllers.NewWebhookController(service),
		Checkout: controllers.NewCheckoutController(builder),
		Queue:    controllers.NewQueueController(queue),
	}, router.Options{
		LimiterStorage: router.NewLimiterStorage(),
		AdminUsers:     admins,
	})

	return app, queue
}
