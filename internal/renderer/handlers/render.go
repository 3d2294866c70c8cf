package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
	"github.com/tc33acecc/StructuraLens/internal/renderer/diagram"
	"github.com/tc33acecc/StructuraLens/internal/renderer/export"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Render Handlers
// ============================================================

// RenderSVG строит SVG диаграмму по структуре из тела запроса.
func RenderSVG(c fiber.Ctx) error {
	log.Printf("[RENDER] Received request, Content-Length: %d", len(c.Body()))

	structure, err := decodeStructure(c)
	if err != nil {
		return err
	}

	renderer := diagram.NewRenderer()
	svg, err := renderer.Render(structure)
	if err != nil {
		log.Printf("[RENDER] Render error: %v", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// RenderPNG строит SVG и снимает его скриншот в headless Chrome.
func RenderPNG(c fiber.Ctx) error {
	log.Printf("[RENDER] PNG request, Content-Length: %d", len(c.Body()))

	structure, err := decodeStructure(c)
	if err != nil {
		return err
	}

	renderer := diagram.NewRenderer()
	svg, err := renderer.Render(structure)
	if err != nil {
		log.Printf("[RENDER] Render error: %v", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	png, err := export.SVGToPNG(context.Background(), svg)
	if err != nil {
		log.Printf("[RENDER] PNG export error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "png export failed"})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// ImportSVG восстанавливает структуру из экспортированной диаграммы.
func ImportSVG(c fiber.Ctx) error {
	log.Printf("[RENDER] Import request")

	var data []byte
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
		}
		defer file.Close()

		data, err = io.ReadAll(file)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
		}
	} else {
		data = c.Body()
	}

	if len(data) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "svg required"})
	}

	structure, err := diagram.ParseSVG(bytes.NewReader(data))
	if err != nil {
		log.Printf("[RENDER] Import error: %v", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(structure)
}

func decodeStructure(c fiber.Ctx) (*models.Structure, error) {
	if len(c.Body()) == 0 {
		return nil, fiber.NewError(http.StatusBadRequest, "body required")
	}

	var structure models.Structure
	if err := json.Unmarshal(c.Body(), &structure); err != nil {
		log.Printf("[RENDER] Decode error: %v", err)
		return nil, fiber.NewError(http.StatusBadRequest, "invalid JSON payload")
	}

	return &structure, nil
}
