package diagram

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// SVG Import
// ============================================================

type svgDocument struct {
	XMLName  xml.Name       `xml:"svg"`
	Metadata []metadataElem `xml:"metadata"`
}

type metadataElem struct {
	ID      string `xml:"id,attr"`
	Content string `xml:",chardata"`
}

// ParseSVG восстанавливает структуру из экспортированной диаграммы:
// читает JSON из элемента <metadata id="structure">.
func ParseSVG(r io.Reader) (*models.Structure, error) {
	var doc svgDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}

	for _, meta := range doc.Metadata {
		if meta.ID != "structure" {
			continue
		}

		var s models.Structure
		if err := json.Unmarshal([]byte(meta.Content), &s); err != nil {
			return nil, fmt.Errorf("unmarshal structure metadata: %w", err)
		}
		s.Normalize()
		return &s, nil
	}

	return nil, fmt.Errorf("svg has no structure metadata")
}
