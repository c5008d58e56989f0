package main

import (
	"io"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"pickhub/internal/catalog"
	"pickhub/internal/config"
	"pickhub/internal/http/handlers"
	"pickhub/internal/picklog"
	"pickhub/internal/repos"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

func main() {
	cfg := config.Load()

	if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.Printf("[main] log file unavailable, stdout only: %v", err)
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	cat, err := catalog.NewStore(cfg.ProductsFile)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	log.Printf("[main] catalog loaded: %d products", cat.Current().Size())

	pickLogs, err := picklog.NewWriter(cfg.PickLogDir)
	if err != nil {
		log.Fatalf("pick log dir: %v", err)
	}

	users := repos.NewUserRepo(db)
	requests := repos.NewRequestRepo(db)

	auth := services.NewAuthService(users)
	lifecycle := services.NewLifecycleService(requests, cat, pickLogs, cfg.AutoModeThreshold)
	registry := services.NewRegistry()
	cleanup := services.NewCleanupService(lifecycle, requests, registry,
		cfg.PickTimeoutMinutes, cfg.CleanupIntervalMinutes, cfg.AutoCleanupHours)
	cleanup.Start()
	defer cleanup.Stop()

	d := handlers.Deps{
		Auth:      auth,
		Lifecycle: lifecycle,
		Registry:  registry,
		Cleanup:   cleanup,
		Catalog:   cat,
		Matcher:   scan.New(cat),
	}

	app := fiber.New(fiber.Config{
		AppName:   "pickhub",
		BodyLimit: 1 << 20, // requests are small JSON; frames arrive over ws
	})
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{Max: 300}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "products": cat.Current().Size()})
	})

	api := app.Group("/api/v1")

	api.Post("/auth/login", d.Login)
	api.Post("/auth/logout", d.RequireUser, d.Logout)
	api.Get("/auth/me", d.RequireUser, d.Me)

	api.Get("/products", d.RequireUser, d.ListProducts)
	api.Get("/products/categories", d.RequireUser, d.Categories)
	api.Post("/products/reload", d.RequireUser, d.RequireAdmin, d.ReloadCatalog)

	api.Post("/requests", d.RequireUser, d.CreateRequest)
	api.Get("/requests", d.RequireUser, d.ListRequests)
	api.Get("/requests/:name", d.RequireUser, d.GetRequest)
	api.Delete("/requests/:name", d.RequireUser, d.DeleteRequest)
	api.Put("/requests/:name/items/:upc", d.RequireUser, d.UpdateItem)
	api.Post("/requests/:name/:action", d.RequireUser, d.Workflow)

	api.Get("/admin/users", d.RequireUser, d.RequireAdmin, d.ListUsers)
	api.Post("/admin/users", d.RequireUser, d.RequireAdmin, d.CreateUser)
	api.Get("/admin/sessions", d.RequireUser, d.RequireAdmin, d.Sessions)
	api.Post("/admin/cleanup", d.RequireUser, d.RequireAdmin, d.RunCleanup)

	// Live sessions. Auth happens before the upgrade.
	app.Use("/ws", d.WSUpgrade)
	app.Get("/ws/scan", d.ScanSocket())
	app.Get("/ws/create-request", d.CreateRequestSocket())
	app.Get("/ws/pick/:name", d.PickSocket())

	log.Fatal(app.Listen(":" + cfg.Port))
}
