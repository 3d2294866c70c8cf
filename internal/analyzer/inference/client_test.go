package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

func fakeAPI(t *testing.T, replyText string, status int, capture *messagesRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		resp := map[string]any{
			"content": []map[string]any{{"type": "text", "text": replyText}},
		}
		if status >= 300 {
			resp = map[string]any{
				"error": map[string]any{"type": "overloaded_error", "message": "try later"},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractStructure(t *testing.T) {
	var captured messagesRequest
	srv := fakeAPI(t, sampleOutput, http.StatusOK, &captured)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	s, latex, err := client.ExtractStructure(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/png")
	require.NoError(t, err)

	assert.Equal(t, 10.0, s.TotalLength)
	assert.Len(t, s.Nodes, 2)
	assert.Contains(t, latex, "tikzpicture")

	// Запрос содержит image-блок с base64 и текстовый промпт.
	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "image", captured.Messages[0].Content[0].Type)
	assert.Equal(t, "image/png", captured.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "iVBORw==", captured.Messages[0].Content[0].Source.Data)
	assert.Equal(t, "text", captured.Messages[0].Content[1].Type)
	assert.Equal(t, "test-model", captured.Model)
}

func TestExtractStructureNormalizesDefaults(t *testing.T) {
	reply := `{"structure":{"nodes":[{"id":"n1","position":0},{"id":"n2","position":5}],` +
		`"loads":[{"id":"p1","start":5,"end":5,"magnitude":1}]},"latexCode":""}`
	srv := fakeAPI(t, reply, http.StatusOK, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	s, _, err := client.ExtractStructure(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, models.SupportFree, s.Nodes[0].Support)
	assert.Equal(t, models.LoadPoint, s.Loads[0].Kind)
	assert.Equal(t, "kN", s.Loads[0].Unit)
	assert.Equal(t, 5.0, s.TotalLength)
}

func TestGenerateReport(t *testing.T) {
	var captured messagesRequest
	srv := fakeAPI(t, "## Report\n$R_A = 5$ kN", http.StatusOK, &captured)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	report, err := client.GenerateReport(context.Background(), models.Structure{
		TotalLength: 10,
		Nodes:       []models.Node{{ID: "n1", Label: "A", Position: 0, Support: models.SupportPin}},
	})
	require.NoError(t, err)

	assert.Contains(t, report, "$R_A = 5$")
	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content[0].Text, "A at 0, support: pin")
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := fakeAPI(t, "", http.StatusServiceUnavailable, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	_, _, err := client.ExtractStructure(context.Background(), []byte("img"), "image/png")
	assert.ErrorContains(t, err, "overloaded_error")
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("http://localhost:1", "", "test-model")
	_, err := client.GenerateReport(context.Background(), models.Structure{})
	assert.ErrorContains(t, err, "api key")
}
