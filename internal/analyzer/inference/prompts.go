package inference

import (
	"fmt"
	"strings"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Prompts
// ============================================================

const extractionSystemPrompt = `You are a structural engineering assistant. You read beam diagrams ` +
	`(расчётные схемы балок) from images and convert them into a parametric model. ` +
	`Answer with a single JSON object and nothing else.`

const extractionPrompt = `Extract the structural model from this beam diagram image.

Return a JSON object of this exact shape:
{
  "structure": {
    "totalLength": <number>,
    "nodes": [{"id": "...", "label": "...", "position": <number>, "support": "fixed|pin|roller|free|hinge", "hinge": <bool>}],
    "loads": [{"id": "...", "kind": "distributed|point|moment", "start": <number>, "end": <number>, "magnitude": <number>, "unit": "...", "symbol": "...", "direction": "up|down|cw|ccw"}],
    "dimensions": [{"id": "...", "label": "...", "start": <number>, "end": <number>, "value": <number>, "unit": "..."}]
  },
  "latexCode": "<LaTeX snippet reproducing the diagram>"
}

Positions are offsets from the left end of the beam. For point loads and moments start must equal end. Dimension spans must be contiguous along the axis.`

const reportSystemPrompt = `You are a structural engineering assistant. You produce a full structural ` +
	`analysis report for a beam: reactions, shear and moment diagrams description, extreme values. ` +
	`Use markdown with LaTeX math ($...$).`

// ReportPrompt строит текстовый запрос отчёта по текущей схеме.
func ReportPrompt(s models.Structure) string {
	var b strings.Builder
	b.WriteString("Analyse the following beam and write a detailed report.\n\n")
	b.WriteString(FormatStructure(s))
	return b.String()
}

// FormatStructure сериализует структуру в структурированный текст для модели.
func FormatStructure(s models.Structure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Beam, total length %g\n\n", s.TotalLength)

	b.WriteString("Nodes:\n")
	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "- %s at %g, support: %s", n.Label, n.Position, n.Support)
		if n.Hinge {
			b.WriteString(" (internal hinge)")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nLoads:\n")
	for _, l := range s.Loads {
		switch l.Kind {
		case models.LoadDistributed:
			fmt.Fprintf(&b, "- %s: distributed %g %s over [%g, %g], direction %s\n",
				l.Symbol, l.Magnitude, l.Unit, l.Start, l.End, l.Direction)
		case models.LoadMoment:
			fmt.Fprintf(&b, "- %s: moment %g %s at %g, %s\n",
				l.Symbol, l.Magnitude, l.Unit, l.Start, l.Direction)
		default:
			fmt.Fprintf(&b, "- %s: point %g %s at %g, direction %s\n",
				l.Symbol, l.Magnitude, l.Unit, l.Start, l.Direction)
		}
	}

	b.WriteString("\nDimensions:\n")
	for _, d := range s.Dimensions {
		fmt.Fprintf(&b, "- %s = %g %s, span [%g, %g]\n", d.Label, d.Value, d.Unit, d.Start, d.End)
	}

	return b.String()
}
