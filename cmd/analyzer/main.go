package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/handlers"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/inference"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/repository"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/service"
	"github.com/tc33acecc/StructuraLens/internal/common/config"
	"github.com/tc33acecc/StructuraLens/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Analyzer Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init("migrations/001_init_analyses.sql"); err != nil {
		log.Fatalf("init db: %v", err)
	}

	registry := service.NewRegistry()
	storage := service.NewFileStorage(cfg.StorageRoot)
	engine := inference.NewClient(cfg.InferenceURL, cfg.InferenceKey, cfg.InferenceModel)
	analysisHandler := handlers.NewAnalysisHandler(repo, registry, storage, engine)

	if cfg.InferenceKey == "" {
		log.Printf("[ANALYZER] warning: INFERENCE_API_KEY is empty, extraction will fail")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Analyzer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Analysis Routes
	// ============================================================

	app.Post("/analyses", analysisHandler.Create)
	app.Get("/analyses", analysisHandler.List)
	app.Get("/analyses/:id", analysisHandler.Get)
	app.Delete("/analyses/:id", analysisHandler.Delete)
	app.Get("/analyses/:id/image", analysisHandler.GetImage)
	app.Patch("/analyses/:id/dimensions/:dimID", analysisHandler.EditDimension)
	app.Patch("/analyses/:id/loads/:loadID", analysisHandler.EditLoad)
	app.Post("/analyses/:id/report", analysisHandler.CreateReport)
	app.Get("/analyses/:id/report", analysisHandler.GetReport)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Analyzer Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
