package material

import (
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

// Aggregate resumen de materiales de un trabajo: proyección de solo lectura sobre las
// líneas confirmadas. Se recalcula bajo demanda; nunca se persiste como fuente de verdad.
type Aggregate struct {
	MaterialCount           int
	MaterialTotal           decimal.Decimal // suma de used × unitPrice
	HasOutstandingMaterials bool            // alguna línea con taken > used + returned
}

// Recompute calcula el agregado desde cero sobre un conjunto de líneas ya confirmadas.
func Recompute(lines []*entity.MaterialLine) Aggregate {
	agg := Aggregate{
		MaterialCount: len(lines),
		MaterialTotal: decimal.Zero,
	}
	for _, line := range lines {
		agg.MaterialTotal = agg.MaterialTotal.Add(line.PriceSubtotal())
		if line.Outstanding() {
			agg.HasOutstandingMaterials = true
		}
	}
	return agg
}

// CanComplete puerta de cierre del trabajo: el registro de trabajos debe consultarla
// antes de permitir el estado terminal. Bloquea mientras exista material sin justificar.
func (a Aggregate) CanComplete() bool {
	return !a.HasOutstandingMaterials
}
