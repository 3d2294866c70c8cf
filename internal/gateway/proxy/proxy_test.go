package proxy

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofiber/fiber/v3"
)

func TestForwardRawBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"from":"upstream"}`))
	}))
	defer srv.Close()

	app := fiber.New()
	app.Post("/test", To(srv.URL+"/analyses"))

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader([]byte(`{"value":15}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	// Статус, тело и заголовки апстрима копируются как есть.
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"from":"upstream"}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, `{"value":15}`, string(gotBody))
	assert.Equal(t, "application/json", gotContentType)
}

func TestForwardMultipart(t *testing.T) {
	var gotFilename string
	var gotFileBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotFileBody, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"a1"}`))
	}))
	defer srv.Close()

	app := fiber.New()
	app.Post("/test", To(srv.URL+"/analyses"))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "beam.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("image bytes"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/test", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "beam.png", gotFilename)
	assert.Equal(t, "image bytes", string(gotFileBody))
}

func TestForwardUnreachableUpstream(t *testing.T) {
	app := fiber.New()
	app.Get("/test", To("http://127.0.0.1:1/analyses"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
