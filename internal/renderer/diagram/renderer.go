package diagram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Diagram Renderer
// ============================================================

// Геометрия холста: балка рисуется горизонтально, опоры под ней,
// нагрузки над ней, размерные линии ниже опор.
const (
	canvasWidth  = 900.0
	canvasHeight = 420.0
	marginX      = 70.0
	beamY        = 220.0
	arrowTopY    = 120.0
	dimLineY     = 330.0
	supportSize  = 26.0
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render собирает SVG диаграммы по структуре. Структура с нулевой длиной
// и без узлов не рисуется.
func (r *Renderer) Render(s *models.Structure) (string, error) {
	if s == nil {
		return "", fmt.Errorf("structure is nil")
	}

	length := s.TotalLength
	if length <= 0 {
		length = models.MaxNodePosition(s.Nodes)
	}
	if length <= 0 {
		return "", fmt.Errorf("structure has no extent")
	}

	scale := (canvasWidth - 2*marginX) / length
	x := func(pos float64) float64 { return marginX + pos*scale }

	var elements []string
	elements = append(elements, r.renderBeam(x(0), x(length)))
	elements = append(elements, r.renderSupports(s, x)...)
	elements = append(elements, r.renderLoads(s, x)...)
	elements = append(elements, r.renderDimensions(s, x)...)
	elements = append(elements, r.renderNodeLabels(s, x)...)

	meta, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal structure metadata: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="sans-serif">`,
		formatFloat(canvasWidth), formatFloat(canvasHeight), formatFloat(canvasWidth), formatFloat(canvasHeight)))
	builder.WriteString("\n")

	// Экспортированный SVG можно импортировать обратно: структура целиком
	// лежит в metadata.
	builder.WriteString(`  <metadata id="structure">`)
	builder.WriteString(xmlEscape(string(meta)))
	builder.WriteString("</metadata>\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Beam & supports
// ============================================================

func (r *Renderer) renderBeam(x1, x2 float64) string {
	return fmt.Sprintf(`<line id="Beam" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#000" stroke-width="4" />`,
		formatFloat(x1), formatFloat(beamY), formatFloat(x2), formatFloat(beamY))
}

func (r *Renderer) renderSupports(s *models.Structure, x func(float64) float64) []string {
	var out []string

	for _, n := range s.Nodes {
		cx := x(n.Position)
		switch n.Support {
		case models.SupportPin:
			out = append(out, pinSymbol(n.ID, cx))
		case models.SupportRoller:
			out = append(out, rollerSymbol(n.ID, cx))
		case models.SupportFixed:
			out = append(out, fixedSymbol(n.ID, cx, n.Position < s.TotalLength/2))
		}
		if n.Hinge || n.Support == models.SupportHinge {
			out = append(out, fmt.Sprintf(`<circle id="Hinge_%s" cx="%s" cy="%s" r="6" fill="#fff" stroke="#000" stroke-width="2" />`,
				n.ID, formatFloat(cx), formatFloat(beamY)))
		}
	}

	return out
}

func pinSymbol(id string, cx float64) string {
	top := beamY
	bottom := beamY + supportSize
	return fmt.Sprintf(`<polygon id="Support_%s" points="%s,%s %s,%s %s,%s" fill="none" stroke="#000" stroke-width="2" />`,
		id,
		formatFloat(cx), formatFloat(top),
		formatFloat(cx-supportSize/2), formatFloat(bottom),
		formatFloat(cx+supportSize/2), formatFloat(bottom))
}

func rollerSymbol(id string, cx float64) string {
	triangle := pinSymbol(id, cx)
	y := beamY + supportSize + 6
	circles := fmt.Sprintf(`<circle cx="%s" cy="%s" r="5" fill="none" stroke="#000" stroke-width="2" /><circle cx="%s" cy="%s" r="5" fill="none" stroke="#000" stroke-width="2" />`,
		formatFloat(cx-7), formatFloat(y), formatFloat(cx+7), formatFloat(y))
	return fmt.Sprintf(`<g id="Roller_%s">%s%s</g>`, id, triangle, circles)
}

func fixedSymbol(id string, cx float64, leftEnd bool) string {
	// Заделка: вертикальная стенка со штриховкой в сторону от балки.
	dir := -1.0
	if !leftEnd {
		dir = 1.0
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<g id="Support_%s">`, id)
	fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#000" stroke-width="3" />`,
		formatFloat(cx), formatFloat(beamY-supportSize), formatFloat(cx), formatFloat(beamY+supportSize))
	for i := 0; i < 5; i++ {
		y := beamY - supportSize + float64(i)*supportSize/2
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#000" stroke-width="1.5" />`,
			formatFloat(cx), formatFloat(y), formatFloat(cx+dir*10), formatFloat(y+10))
	}
	b.WriteString(`</g>`)
	return b.String()
}

// ============================================================
// Loads
// ============================================================

func (r *Renderer) renderLoads(s *models.Structure, x func(float64) float64) []string {
	var out []string

	for _, l := range s.Loads {
		switch l.Kind {
		case models.LoadDistributed:
			out = append(out, distributedLoad(l, x))
		case models.LoadMoment:
			out = append(out, momentLoad(l, x))
		default:
			out = append(out, pointLoad(l, x))
		}
	}

	return out
}

func pointLoad(l models.Load, x func(float64) float64) string {
	cx := x(l.Start)

	y1, y2 := arrowTopY, beamY-6
	if l.Direction == models.DirectionUp {
		y1, y2 = beamY+6, arrowTopY
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<g id="Load_%s">`, l.ID)
	fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#d62728" stroke-width="2" />`,
		formatFloat(cx), formatFloat(y1), formatFloat(cx), formatFloat(y2))
	b.WriteString(arrowHead(cx, y2, l.Direction == models.DirectionUp))
	fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#d62728">%s = %s %s</text>`,
		formatFloat(cx), formatFloat(arrowTopY-10), xmlEscape(l.Symbol), formatFloat(l.Magnitude), xmlEscape(l.Unit))
	b.WriteString(`</g>`)
	return b.String()
}

func distributedLoad(l models.Load, x func(float64) float64) string {
	x1, x2 := x(l.Start), x(l.End)
	if x2 < x1 {
		x1, x2 = x2, x1
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<g id="Load_%s">`, l.ID)
	fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#1f77b4" stroke-width="2" />`,
		formatFloat(x1), formatFloat(arrowTopY), formatFloat(x2), formatFloat(arrowTopY))

	// Стрелки через каждые ~40px, но минимум по краям.
	count := int((x2-x1)/40) + 1
	if count < 2 {
		count = 2
	}
	step := (x2 - x1) / float64(count-1)
	for i := 0; i < count; i++ {
		cx := x1 + float64(i)*step
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#1f77b4" stroke-width="1.5" />`,
			formatFloat(cx), formatFloat(arrowTopY), formatFloat(cx), formatFloat(beamY-6))
		b.WriteString(arrowHeadColored(cx, beamY-6, false, "#1f77b4"))
	}

	fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#1f77b4">%s = %s %s</text>`,
		formatFloat((x1+x2)/2), formatFloat(arrowTopY-10), xmlEscape(l.Symbol), formatFloat(l.Magnitude), xmlEscape(l.Unit))
	b.WriteString(`</g>`)
	return b.String()
}

func momentLoad(l models.Load, x func(float64) float64) string {
	cx := x(l.Start)
	r := 24.0

	// Дуга три четверти окружности; направление задаёт sweep-flag.
	sweep := "1"
	if l.Direction == models.DirectionCCW {
		sweep = "0"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<g id="Load_%s">`, l.ID)
	fmt.Fprintf(&b, `<path d="M %s %s A %s %s 0 1 %s %s %s" fill="none" stroke="#2ca02c" stroke-width="2" />`,
		formatFloat(cx), formatFloat(beamY-r), formatFloat(r), formatFloat(r), sweep,
		formatFloat(cx-r), formatFloat(beamY))
	b.WriteString(arrowHeadColored(cx-r, beamY, l.Direction == models.DirectionCCW, "#2ca02c"))
	fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#2ca02c">%s = %s %s</text>`,
		formatFloat(cx), formatFloat(beamY-r-34), xmlEscape(l.Symbol), formatFloat(l.Magnitude), xmlEscape(l.Unit))
	b.WriteString(`</g>`)
	return b.String()
}

func arrowHead(cx, cy float64, up bool) string {
	return arrowHeadColored(cx, cy, up, "#d62728")
}

func arrowHeadColored(cx, cy float64, up bool, color string) string {
	dy := 10.0
	if up {
		dy = -10.0
	}
	return fmt.Sprintf(`<polygon points="%s,%s %s,%s %s,%s" fill="%s" />`,
		formatFloat(cx), formatFloat(cy+dy),
		formatFloat(cx-5), formatFloat(cy),
		formatFloat(cx+5), formatFloat(cy),
		color)
}

// ============================================================
// Dimensions & labels
// ============================================================

func (r *Renderer) renderDimensions(s *models.Structure, x func(float64) float64) []string {
	var out []string

	for _, d := range s.Dimensions {
		x1, x2 := x(d.Start), x(d.End)

		var b strings.Builder
		fmt.Fprintf(&b, `<g id="Dim_%s">`, d.ID)
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#555" stroke-width="1" />`,
			formatFloat(x1), formatFloat(dimLineY), formatFloat(x2), formatFloat(dimLineY))
		for _, tick := range []float64{x1, x2} {
			fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#555" stroke-width="1" />`,
				formatFloat(tick), formatFloat(dimLineY-7), formatFloat(tick), formatFloat(dimLineY+7))
		}
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#333">%s = %s %s</text>`,
			formatFloat((x1+x2)/2), formatFloat(dimLineY-10), xmlEscape(d.Label), formatFloat(d.Value), xmlEscape(d.Unit))
		b.WriteString(`</g>`)

		out = append(out, b.String())
	}

	return out
}

func (r *Renderer) renderNodeLabels(s *models.Structure, x func(float64) float64) []string {
	var out []string

	for _, n := range s.Nodes {
		out = append(out, fmt.Sprintf(`<text id="Node_%s" x="%s" y="%s" text-anchor="middle" font-size="15" fill="#000">%s</text>`,
			n.ID, formatFloat(x(n.Position)), formatFloat(beamY+supportSize+32), xmlEscape(n.Label)))
	}

	return out
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func xmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
