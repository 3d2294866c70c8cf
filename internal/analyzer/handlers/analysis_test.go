package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v3"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/repository"
	"github.com/tc33acecc/StructuraLens/internal/analyzer/service"
)

// ============================================================
// Fake inference engine
// ============================================================

type fakeEngine struct {
	structure models.Structure
	latex     string
	report    string
	failWith  error

	gotMediaType string
	gotImageSize int
}

func (f *fakeEngine) ExtractStructure(_ context.Context, image []byte, mediaType string) (models.Structure, string, error) {
	f.gotMediaType = mediaType
	f.gotImageSize = len(image)
	if f.failWith != nil {
		return models.Structure{}, "", f.failWith
	}
	return f.structure, f.latex, nil
}

func (f *fakeEngine) GenerateReport(_ context.Context, _ models.Structure) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	return f.report, nil
}

// ============================================================
// Test app wiring
// ============================================================

func extractedStructure() models.Structure {
	return models.Structure{
		TotalLength: 10,
		Nodes: []models.Node{
			{ID: "n1", Label: "A", Position: 0, Support: models.SupportPin},
			{ID: "n2", Label: "B", Position: 10, Support: models.SupportRoller},
		},
		Loads: []models.Load{
			{ID: "p1", Kind: models.LoadPoint, Start: 10, End: 10, Magnitude: 5, Unit: "kN", Symbol: "P1", Direction: models.DirectionDown},
		},
		Dimensions: []models.Dimension{
			{ID: "d1", Label: "L1", Start: 0, End: 10, Value: 10, Unit: "m"},
		},
	}
}

func newTestApp(t *testing.T, engine *fakeEngine) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	db, err := repository.OpenSQLite(filepath.Join(dir, "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init("../../../migrations/001_init_analyses.sql"))

	h := NewAnalysisHandler(repo, service.NewRegistry(), service.NewFileStorage(filepath.Join(dir, "files")), engine)

	app := fiber.New()
	app.Post("/analyses", h.Create)
	app.Get("/analyses", h.List)
	app.Get("/analyses/:id", h.Get)
	app.Delete("/analyses/:id", h.Delete)
	app.Get("/analyses/:id/image", h.GetImage)
	app.Patch("/analyses/:id/dimensions/:dimID", h.EditDimension)
	app.Patch("/analyses/:id/loads/:loadID", h.EditLoad)
	app.Post("/analyses/:id/report", h.CreateReport)
	app.Get("/analyses/:id/report", h.GetReport)
	return app
}

func uploadRequest(t *testing.T, filename string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyses", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func createAnalysis(t *testing.T, app *fiber.App) repository.Analysis {
	t.Helper()

	resp, err := app.Test(uploadRequest(t, "beam.png"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var analysis repository.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&analysis))
	return analysis
}

func decodeStructure(t *testing.T, resp *http.Response) models.Structure {
	t.Helper()

	var s models.Structure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

// ============================================================
// Tests
// ============================================================

func TestCreateAnalysis(t *testing.T) {
	engine := &fakeEngine{structure: extractedStructure(), latex: "\\begin{tikzpicture}"}
	app := newTestApp(t, engine)

	analysis := createAnalysis(t, app)

	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, 10.0, analysis.Structure.TotalLength)
	assert.Equal(t, "\\begin{tikzpicture}", analysis.LatexCode)
	assert.Equal(t, "image/png", engine.gotMediaType)
	assert.Equal(t, len("fake image bytes"), engine.gotImageSize)

	// Анализ читается обратно и изображение сохранено.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID+"/image", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestCreateRejectsUnsupportedFile(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})

	resp, err := app.Test(uploadRequest(t, "beam.gif"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSurfacesExtractionFailure(t *testing.T) {
	engine := &fakeEngine{failWith: fmt.Errorf("model overloaded")}
	app := newTestApp(t, engine)

	resp, err := app.Test(uploadRequest(t, "beam.png"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// Ничего не сохранилось.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/analyses", nil))
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestEditDimensionPropagates(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})
	analysis := createAnalysis(t, app)

	req := httptest.NewRequest(http.MethodPatch, "/analyses/"+analysis.ID+"/dimensions/d1",
		strings.NewReader(`{"value": 15}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeStructure(t, resp)
	assert.Equal(t, 15.0, s.Dimensions[0].End)
	assert.Equal(t, 15.0, s.Nodes[1].Position)
	assert.Equal(t, 15.0, s.Loads[0].Start)
	assert.Equal(t, 15.0, s.TotalLength)

	// Правка сохранена.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID, nil))
	require.NoError(t, err)
	var stored repository.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, 15.0, stored.Structure.TotalLength)
}

func TestEditDimensionNonNumericValueIsZero(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})
	analysis := createAnalysis(t, app)

	req := httptest.NewRequest(http.MethodPatch, "/analyses/"+analysis.ID+"/dimensions/d1",
		strings.NewReader(`{"value": "not a number"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeStructure(t, resp)
	assert.Equal(t, 0.0, s.Dimensions[0].Value)
	assert.Equal(t, 0.0, s.TotalLength)
}

func TestEditDimensionUnknownIDIsNoop(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})
	analysis := createAnalysis(t, app)

	req := httptest.NewRequest(http.MethodPatch, "/analyses/"+analysis.ID+"/dimensions/missing",
		strings.NewReader(`{"value": 99}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeStructure(t, resp)
	assert.Equal(t, analysis.Structure, s)
}

func TestEditLoad(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})
	analysis := createAnalysis(t, app)

	req := httptest.NewRequest(http.MethodPatch, "/analyses/"+analysis.ID+"/loads/p1",
		strings.NewReader(`{"magnitude": 8, "direction": "up"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decodeStructure(t, resp)
	assert.Equal(t, 8.0, s.Loads[0].Magnitude)
	assert.Equal(t, models.DirectionUp, s.Loads[0].Direction)
	assert.Equal(t, analysis.Structure.Nodes, s.Nodes)
}

func TestReportLifecycle(t *testing.T) {
	engine := &fakeEngine{structure: extractedStructure(), report: "## Report\n$R_A$"}
	app := newTestApp(t, engine)
	analysis := createAnalysis(t, app)

	// Отчёта ещё нет.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID+"/report", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/analyses/"+analysis.ID+"/report", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID+"/report", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["report"], "$R_A$")
}

func TestDeleteAnalysis(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})
	analysis := createAnalysis(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/analyses/"+analysis.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/analyses/"+analysis.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownAnalysisIs404(t *testing.T) {
	app := newTestApp(t, &fakeEngine{structure: extractedStructure()})

	req := httptest.NewRequest(http.MethodPatch, "/analyses/nope/dimensions/d1",
		strings.NewReader(`{"value": 1}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
