package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Model Output Parsing
// ============================================================

// ExtractionResult — распакованный ответ первого вызова модели.
type ExtractionResult struct {
	Structure models.Structure `json:"structure"`
	LatexCode string           `json:"latexCode"`
}

// DecodeExtraction вынимает JSON из текста модели и декодирует его.
// Модель иногда оборачивает ответ в ```json-фенс или добавляет преамбулу,
// поэтому берём подстроку от первой '{' до последней '}'.
func DecodeExtraction(text string) (ExtractionResult, error) {
	raw := StripFences(text)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ExtractionResult{}, fmt.Errorf("no JSON object in model output")
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return ExtractionResult{}, fmt.Errorf("unmarshal model output: %w", err)
	}

	if len(result.Structure.Nodes) == 0 {
		return ExtractionResult{}, fmt.Errorf("model output has no nodes")
	}

	return result, nil
}

// StripFences срезает markdown-фенсы вокруг ответа, если они есть.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
