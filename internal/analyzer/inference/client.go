package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Inference Engine
// ============================================================

// Engine — граница внешнего мультимодального сервиса: две операции,
// извлечение схемы из изображения и генерация отчёта по схеме.
type Engine interface {
	ExtractStructure(ctx context.Context, image []byte, mediaType string) (models.Structure, string, error)
	GenerateReport(ctx context.Context, s models.Structure) (string, error)
}

// Client ходит в messages API (Anthropic-совместимый контракт).
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: 8192,
		http:      &http.Client{Timeout: 120 * time.Second},
	}
}

// ============================================================
// Wire types (messages API)
// ============================================================

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ============================================================
// Operations
// ============================================================

// ExtractStructure отправляет изображение схемы и возвращает извлечённую
// структуру плюс LaTeX-фрагмент описания схемы.
func (c *Client) ExtractStructure(ctx context.Context, image []byte, mediaType string) (models.Structure, string, error) {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    extractionSystemPrompt,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      base64.StdEncoding.EncodeToString(image),
				}},
				{Type: "text", Text: extractionPrompt},
			},
		}},
	}

	text, err := c.complete(ctx, req)
	if err != nil {
		return models.Structure{}, "", err
	}

	result, err := DecodeExtraction(text)
	if err != nil {
		return models.Structure{}, "", fmt.Errorf("decode extraction: %w", err)
	}

	result.Structure.Normalize()
	return result.Structure, result.LatexCode, nil
}

// GenerateReport сериализует структуру в текст и запрашивает отчёт.
// Ответ возвращается дословно (markdown с математической разметкой).
func (c *Client) GenerateReport(ctx context.Context, s models.Structure) (string, error) {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    reportSystemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: ReportPrompt(s)}},
		}},
	}

	return c.complete(ctx, req)
}

// complete выполняет один запрос к messages API и возвращает текст ответа.
func (c *Client) complete(ctx context.Context, payload messagesRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("inference api key is empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if parsed.Error != nil {
			log.Printf("[INFERENCE] API error: %s: %s", parsed.Error.Type, parsed.Error.Message)
			return "", fmt.Errorf("inference status %d: %s", resp.StatusCode, parsed.Error.Type)
		}
		return "", fmt.Errorf("inference status %d", resp.StatusCode)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("inference response has no text content")
}
