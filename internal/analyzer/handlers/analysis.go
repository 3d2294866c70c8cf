package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/geometry"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/inference"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/repository"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Analysis Handler
// ============================================================

type AnalysisHandler struct {
	repo     *repository.Repository
	registry *service.Registry
	storage  *service.FileStorage
	engine   inference.Engine
}

func NewAnalysisHandler(repo *repository.Repository, registry *service.Registry, storage *service.FileStorage, engine inference.Engine) *AnalysisHandler {
	return &AnalysisHandler{
		repo:     repo,
		registry: registry,
		storage:  storage,
		engine:   engine,
	}
}

var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Create принимает изображение схемы, извлекает структуру через модель
// и сохраняет новый анализ.
func (h *AnalysisHandler) Create(c fiber.Ctx) error {
	log.Printf("[ANALYZER] Create request, Content-Length: %d", len(c.Body()))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required in multipart/form-data"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	mediaType, ok := imageMediaTypes[ext]
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "only png and jpeg allowed"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	structure, latexCode, err := h.engine.ExtractStructure(context.Background(), data, mediaType)
	if err != nil {
		log.Printf("[ANALYZER] extraction error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "model extraction failed"})
	}

	analysis := &repository.Analysis{
		ID:        uuid.NewString(),
		Structure: structure,
		LatexCode: latexCode,
		MediaType: mediaType,
	}

	if err := h.repo.Create(context.Background(), analysis); err != nil {
		log.Printf("[ANALYZER] save error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save analysis"})
	}

	if err := h.storage.SaveFile(analysis.ID, h.storage.ImagePath(analysis.ID, ext), data); err != nil {
		log.Printf("[ANALYZER] save image error: %v", err)
	}

	h.registry.Put(analysis.ID, structure)

	return c.Status(http.StatusCreated).JSON(analysis)
}

// List возвращает все сохранённые анализы.
func (h *AnalysisHandler) List(c fiber.Ctx) error {
	list, err := h.repo.List(context.Background())
	if err != nil {
		log.Printf("[ANALYZER] list error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list analyses"})
	}
	if list == nil {
		list = []*repository.Analysis{}
	}
	return c.JSON(list)
}

// Get возвращает один анализ по id.
func (h *AnalysisHandler) Get(c fiber.Ctx) error {
	analysis, err := h.repo.GetByID(context.Background(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(analysis)
}

// Delete удаляет анализ (пользователь начинает новый разбор).
func (h *AnalysisHandler) Delete(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.repo.Delete(context.Background(), id); err != nil {
		return notFoundOr500(c, err)
	}

	h.registry.Delete(id)
	if err := h.storage.RemoveAll(id); err != nil {
		log.Printf("[ANALYZER] remove files error: %v", err)
	}

	return c.JSON(fiber.Map{"deleted": id})
}

// GetImage отдаёт исходное изображение анализа.
func (h *AnalysisHandler) GetImage(c fiber.Ctx) error {
	path, ok := h.storage.FindImage(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "image not found"})
	}

	if strings.HasSuffix(path, ".png") {
		c.Set("Content-Type", "image/png")
	} else {
		c.Set("Content-Type", "image/jpeg")
	}
	return c.SendFile(path)
}

// EditDimension меняет длину размера и сдвигает зависимую геометрию.
func (h *AnalysisHandler) EditDimension(c fiber.Ctx) error {
	id := c.Params("id")
	dimID := c.Params("dimID")

	structure, err := h.currentStructure(id)
	if err != nil {
		return notFoundOr500(c, err)
	}

	var req struct {
		Value any `json:"value"`
	}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	updated := geometry.ChangeDimension(structure, dimID, numeric(req.Value))
	if err := h.persist(id, updated); err != nil {
		return err
	}

	return c.JSON(updated)
}

// EditLoad применяет частичное обновление полей одной нагрузки.
func (h *AnalysisHandler) EditLoad(c fiber.Ctx) error {
	id := c.Params("id")
	loadID := c.Params("loadID")

	structure, err := h.currentStructure(id)
	if err != nil {
		return notFoundOr500(c, err)
	}

	var patch geometry.LoadPatch
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	updated := geometry.UpdateLoad(structure, loadID, patch)
	if err := h.persist(id, updated); err != nil {
		return err
	}

	return c.JSON(updated)
}

// CreateReport запрашивает отчёт у модели по текущей структуре.
func (h *AnalysisHandler) CreateReport(c fiber.Ctx) error {
	id := c.Params("id")

	structure, err := h.currentStructure(id)
	if err != nil {
		return notFoundOr500(c, err)
	}

	report, err := h.engine.GenerateReport(context.Background(), structure)
	if err != nil {
		log.Printf("[ANALYZER] report error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "report generation failed"})
	}

	if err := h.repo.UpdateReport(context.Background(), id, report); err != nil {
		log.Printf("[ANALYZER] save report error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save report"})
	}

	return c.JSON(fiber.Map{"report": report})
}

// GetReport отдаёт ранее сгенерированный отчёт.
func (h *AnalysisHandler) GetReport(c fiber.Ctx) error {
	analysis, err := h.repo.GetByID(context.Background(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	if analysis.Report == "" {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "report not generated yet"})
	}
	return c.JSON(fiber.Map{"report": analysis.Report})
}

// ============================================================
// Helpers
// ============================================================

// currentStructure берёт рабочую копию из реестра, иначе из репозитория.
func (h *AnalysisHandler) currentStructure(id string) (models.Structure, error) {
	if s, ok := h.registry.Get(id); ok {
		return s, nil
	}

	analysis, err := h.repo.GetByID(context.Background(), id)
	if err != nil {
		return models.Structure{}, err
	}
	h.registry.Put(id, analysis.Structure)
	return analysis.Structure, nil
}

func (h *AnalysisHandler) persist(id string, s models.Structure) error {
	h.registry.Put(id, s)
	if err := h.repo.UpdateStructure(context.Background(), id, s); err != nil {
		log.Printf("[ANALYZER] persist structure error: %v", err)
		return fiber.NewError(http.StatusInternalServerError, "failed to save structure")
	}
	return nil
}

func notFoundOr500(c fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "analysis not found"})
	}
	log.Printf("[ANALYZER] storage error: %v", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "storage failure"})
}

// numeric приводит значение из JSON к числу; нечисловой ввод — ноль.
func numeric(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}
