package models

// ============================================================
// Support & Load enums
// ============================================================

// Типы опор, которые модель извлекает из изображения.
const (
	SupportFixed  = "fixed"
	SupportPin    = "pin"
	SupportRoller = "roller"
	SupportFree   = "free"
	SupportHinge  = "hinge"
)

// Виды нагрузок.
const (
	LoadDistributed = "distributed"
	LoadPoint       = "point"
	LoadMoment      = "moment"
)

// Направления: up/down для сил, cw/ccw для моментов.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionCW   = "cw"
	DirectionCCW  = "ccw"
)

// ============================================================
// Structure Model
// ============================================================

// Node — узел на оси балки (позиция от левого края, опционально опора).
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Position float64 `json:"position"`
	Support  string  `json:"support,omitempty"`
	Hinge    bool    `json:"hinge,omitempty"`
}

// Load — сила или момент на участке [start, end] (start == end для точечных).
type Load struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
}

// Dimension — размерная линия с числовым значением и единицей.
type Dimension struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Structure — извлечённая расчётная схема балки целиком.
type Structure struct {
	TotalLength float64     `json:"totalLength"`
	Nodes       []Node      `json:"nodes"`
	Loads       []Load      `json:"loads"`
	Dimensions  []Dimension `json:"dimensions"`
}

// ============================================================
// Normalization
// ============================================================

// Normalize заполняет пропущенные моделью поля безопасными значениями.
// Модель не всегда возвращает тип опоры, единицы и символы — их нельзя
// считать обязательными (внешний контракт этого не гарантирует).
func (s *Structure) Normalize() {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Support == "" {
			n.Support = SupportFree
		}
		if n.Support == SupportHinge {
			n.Hinge = true
		}
		if n.Label == "" {
			n.Label = n.ID
		}
	}

	for i := range s.Loads {
		l := &s.Loads[i]
		switch l.Kind {
		case LoadDistributed, LoadPoint, LoadMoment:
		default:
			l.Kind = LoadPoint
		}
		if l.Kind != LoadDistributed && l.End != l.Start {
			l.End = l.Start
		}
		if l.Unit == "" {
			if l.Kind == LoadMoment {
				l.Unit = "kN·m"
			} else if l.Kind == LoadDistributed {
				l.Unit = "kN/m"
			} else {
				l.Unit = "kN"
			}
		}
		if l.Symbol == "" {
			l.Symbol = l.ID
		}
		if l.Direction == "" {
			if l.Kind == LoadMoment {
				l.Direction = DirectionCW
			} else {
				l.Direction = DirectionDown
			}
		}
	}

	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		if d.Unit == "" {
			d.Unit = "m"
		}
		if d.Label == "" {
			d.Label = d.ID
		}
	}

	s.TotalLength = MaxNodePosition(s.Nodes)
}

// MaxNodePosition возвращает максимальную позицию узла (0, если узлов нет).
func MaxNodePosition(nodes []Node) float64 {
	max := 0.0
	for _, n := range nodes {
		if n.Position > max {
			max = n.Position
		}
	}
	return max
}

// Clone делает глубокую копию структуры (все слайсы копируются).
func (s *Structure) Clone() Structure {
	out := Structure{TotalLength: s.TotalLength}
	out.Nodes = append([]Node(nil), s.Nodes...)
	out.Loads = append([]Load(nil), s.Loads...)
	out.Dimensions = append([]Dimension(nil), s.Dimensions...)
	return out
}
