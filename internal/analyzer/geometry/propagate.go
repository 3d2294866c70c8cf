package geometry

import (
	"math"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Dimension-Change Propagation
// ============================================================

// Допуск сравнения позиций: гасит шум плавающей точки, чтобы элемент,
// стоящий численно "на" границе, считался стоящим за ней.
const epsilon = 0.001

// ChangeDimension меняет длину размера dimID на newValue и сдвигает всё,
// что расположено на правой границе старого размера или правее неё.
// Неизвестный dimID — no-op: возвращается нетронутая копия. NaN трактуется
// как ноль (пустое поле ввода).
func ChangeDimension(s models.Structure, dimID string, newValue float64) models.Structure {
	out := s.Clone()

	if math.IsNaN(newValue) {
		newValue = 0
	}

	target := -1
	for i := range out.Dimensions {
		if out.Dimensions[i].ID == dimID {
			target = i
			break
		}
	}
	if target < 0 {
		return out
	}

	dim := &out.Dimensions[target]
	diff := newValue - dim.Value
	pivot := dim.End

	// Правка растягивает участок вправо: start не двигается.
	dim.Value = newValue
	dim.End = dim.Start + newValue

	for i := range out.Dimensions {
		if i == target {
			continue
		}
		d := &out.Dimensions[i]
		if d.Start >= pivot-epsilon {
			d.Start += diff
			d.End += diff
		}
	}

	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.Position >= pivot-epsilon {
			n.Position += diff
		}
	}

	for i := range out.Loads {
		l := &out.Loads[i]
		switch {
		case l.Start >= pivot-epsilon:
			// Нагрузка целиком за границей: переносим целиком.
			l.Start += diff
			l.End += diff
		case l.End >= pivot-epsilon:
			// Нагрузка пересекает границу: двигаем только правый край.
			// Для распределённых нагрузок, начинающихся до участка, это
			// осознанное упрощение, и оно сохраняется как есть.
			l.End += diff
		}
	}

	out.TotalLength = models.MaxNodePosition(out.Nodes)
	return out
}

// ============================================================
// Load Field Editing
// ============================================================

// LoadPatch — частичное обновление полей нагрузки; nil-поля не трогаются.
type LoadPatch struct {
	Kind      *string  `json:"kind,omitempty"`
	Start     *float64 `json:"start,omitempty"`
	End       *float64 `json:"end,omitempty"`
	Magnitude *float64 `json:"magnitude,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	Symbol    *string  `json:"symbol,omitempty"`
	Direction *string  `json:"direction,omitempty"`
}

// UpdateLoad применяет patch к нагрузке loadID. Неизвестный id — no-op.
func UpdateLoad(s models.Structure, loadID string, patch LoadPatch) models.Structure {
	out := s.Clone()

	for i := range out.Loads {
		l := &out.Loads[i]
		if l.ID != loadID {
			continue
		}
		if patch.Kind != nil {
			l.Kind = *patch.Kind
		}
		if patch.Start != nil {
			l.Start = *patch.Start
		}
		if patch.End != nil {
			l.End = *patch.End
		}
		if patch.Magnitude != nil {
			l.Magnitude = *patch.Magnitude
		}
		if patch.Unit != nil {
			l.Unit = *patch.Unit
		}
		if patch.Symbol != nil {
			l.Symbol = *patch.Symbol
		}
		if patch.Direction != nil {
			l.Direction = *patch.Direction
		}
		break
	}

	return out
}
