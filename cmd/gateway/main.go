package main

import (
	"fmt"
	"log"
	"time"

	"github.com/tc33acecc/StructuraLens/internal/common/config"
	"github.com/tc33acecc/StructuraLens/internal/common/middleware"
	"github.com/tc33acecc/StructuraLens/internal/gateway/handlers"
	"github.com/tc33acecc/StructuraLens/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "StructuraLens Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check & Docs Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe)

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "StructuraLens API v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Analyzer Service
	analyzerURL := cfg.AnalyzerURL
	api.Post("/analyses", proxy.To(analyzerURL+"/analyses"))
	api.Get("/analyses", proxy.To(analyzerURL+"/analyses"))
	api.Get("/analyses/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s", analyzerURL, c.Params("id")))
	})
	api.Delete("/analyses/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s", analyzerURL, c.Params("id")))
	})
	api.Get("/analyses/:id/image", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s/image", analyzerURL, c.Params("id")))
	})
	api.Patch("/analyses/:id/dimensions/:dimID", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s/dimensions/%s", analyzerURL, c.Params("id"), c.Params("dimID")))
	})
	api.Patch("/analyses/:id/loads/:loadID", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s/loads/%s", analyzerURL, c.Params("id"), c.Params("loadID")))
	})
	api.Post("/analyses/:id/report", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s/report", analyzerURL, c.Params("id")))
	})
	api.Get("/analyses/:id/report", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/analyses/%s/report", analyzerURL, c.Params("id")))
	})

	// Renderer Service
	rendererURL := cfg.RendererURL
	api.Post("/render", proxy.To(rendererURL+"/render"))
	api.Post("/render/png", proxy.To(rendererURL+"/render/png"))
	api.Post("/import", proxy.To(rendererURL+"/import"))

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying /analyses to %s, /render to %s", analyzerURL, rendererURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
