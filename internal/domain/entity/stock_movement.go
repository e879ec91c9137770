package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento físico solicitados al ledger de inventario.
const (
	MovementIssue    = "ISSUE"    // bodega → recurso (retiro de material)
	MovementDelivery = "DELIVERY" // recurso → cliente (consumo en terreno)
	MovementReturn   = "RETURN"   // recurso → bodega (devolución de sobrante)
)

// StockMovementRequest solicitud de movimiento físico entre ubicaciones (valor transitorio
// intercambiado con el ledger; el núcleo no lo persiste).
type StockMovementRequest struct {
	FromLocationID string
	ToLocationID   string
	ProductID      string
	Quantity       decimal.Decimal
	LotID          string // pass-through; la semántica de lotes vive en el ledger
	JobID          string
	Type           string // ISSUE, DELIVERY, RETURN
	Origin         string // etiqueta legible: "<trabajo> - <documento> - <técnico>"
}

// StockMovementResult respuesta del ledger por línea movida.
type StockMovementResult struct {
	MovementID string
	MovedAt    time.Time
}
