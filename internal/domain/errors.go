package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio del ciclo de materiales (sin dependencias de infraestructura).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrEmptyBatch            = errors.New("el lote no contiene líneas")
	ErrDuplicateProduct      = errors.New("producto repetido en el lote")
	ErrInvariantViolated     = errors.New("invariante de cantidades violada")
	ErrLocationNotConfigured = errors.New("ubicación de bodega no configurada")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrLedgerUnavailable     = errors.New("ledger de inventario no disponible")
	ErrConcurrencyConflict   = errors.New("no se obtuvo acceso exclusivo al trabajo")
	ErrInconsistentState     = errors.New("estado inconsistente: requiere intervención del operador")
)

// Identificadores de las invariantes de cantidades de una línea de material.
const (
	InvariantPositiveAmount = "positive_amount"    // la cantidad de una transición debe ser > 0
	InvariantNonNegative    = "non_negative"       // ninguna cantidad puede quedar negativa
	InvariantUsedLETaken    = "used_within_taken"  // used ≤ taken
	InvariantReturnedLEFree = "returned_available" // returned ≤ taken − used
)

// InvariantViolation detalla qué invariante falló y con qué valores, por producto.
// Se produce antes de cualquier efecto externo; la línea afectada no cambia.
type InvariantViolation struct {
	Invariant string
	ProductID string
	Amount    decimal.Decimal // cantidad solicitada en la transición
	Taken     decimal.Decimal
	Used      decimal.Decimal
	Returned  decimal.Decimal
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariante %s violada para producto %s (cantidad=%s, retirada=%s, consumida=%s, devuelta=%s)",
		e.Invariant, e.ProductID, e.Amount, e.Taken, e.Used, e.Returned)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolated }

// LedgerFault falla remota del ledger para un producto del lote. El lote completo se
// aborta y los movimientos ya aplicados se revierten antes de devolver este error.
type LedgerFault struct {
	ProductID string
	Reason    error
}

func (e *LedgerFault) Error() string {
	return fmt.Sprintf("movimiento de stock rechazado para producto %s: %v", e.ProductID, e.Reason)
}

func (e *LedgerFault) Unwrap() error { return e.Reason }

// InconsistencyError la compensación de un lote parcialmente aplicado falló: quedaron
// movimientos físicos sin revertir. No se traga; el operador debe conciliar a mano.
type InconsistencyError struct {
	MovementIDs []string // movimientos aplicados que no pudieron revertirse
	Cause       error    // falla original que disparó la compensación
	ReversalErr error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("compensación fallida (%d movimientos sin revertir): causa=%v, reversa=%v",
		len(e.MovementIDs), e.Cause, e.ReversalErr)
}

func (e *InconsistencyError) Unwrap() error { return ErrInconsistentState }
