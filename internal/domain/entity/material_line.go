package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados derivados de una línea de material. Nunca se almacenan: se calculan
// siempre a partir de las cantidades para evitar desincronización estado/cantidad.
const (
	LineStatePlanned = "planned" // taken = 0
	LineStateTaken   = "taken"   // taken > 0 y queda cantidad sin justificar
	LineStateSettled = "settled" // taken = used + returned (con taken > 0)
)

// MaterialLine representa una línea de material de un trabajo de terreno: el par
// (trabajo, producto) con su tupla de cantidades planificada/retirada/consumida/devuelta.
// Las cantidades solo las escribe el motor de transiciones; ningún otro camino las muta.
type MaterialLine struct {
	ID          string
	JobID       string
	ProductID   string
	UnitMeasure string
	UnitPrice   decimal.Decimal // snapshot al crear la línea; se refresca solo explícitamente
	LotID       string          // opcional; se propaga al ledger sin interpretarlo
	PlannedQty  decimal.Decimal
	TakenQty    decimal.Decimal
	UsedQty     decimal.Decimal
	ReturnedQty decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailableToReturnQty devuelve retirada − consumida − devuelta. Derivada, nunca almacenada.
func (l *MaterialLine) AvailableToReturnQty() decimal.Decimal {
	return l.TakenQty.Sub(l.UsedQty).Sub(l.ReturnedQty)
}

// PriceSubtotal devuelve consumida × precio unitario.
func (l *MaterialLine) PriceSubtotal() decimal.Decimal {
	return l.UsedQty.Mul(l.UnitPrice)
}

// Settled indica que toda la cantidad retirada quedó justificada por consumo o devolución.
func (l *MaterialLine) Settled() bool {
	return l.TakenQty.Equal(l.UsedQty.Add(l.ReturnedQty))
}

// Outstanding indica que hay cantidad retirada aún sin justificar.
func (l *MaterialLine) Outstanding() bool {
	return l.TakenQty.GreaterThan(l.UsedQty.Add(l.ReturnedQty))
}

// State deriva el estado de la línea desde sus cantidades.
func (l *MaterialLine) State() string {
	if l.TakenQty.IsZero() {
		return LineStatePlanned
	}
	if l.Settled() {
		return LineStateSettled
	}
	return LineStateTaken
}
