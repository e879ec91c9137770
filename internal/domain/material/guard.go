package material

import (
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

// DeltaKind clase de transición aplicada sobre una línea de material.
type DeltaKind string

const (
	DeltaAdd     DeltaKind = "add"     // incrementa planificada; sin movimiento físico
	DeltaTake    DeltaKind = "take"    // incrementa retirada; bodega → recurso
	DeltaConsume DeltaKind = "consume" // incrementa consumida; recurso → cliente
	DeltaReturn  DeltaKind = "return"  // incrementa devuelta; recurso → bodega
)

// ApplyDelta calcula la línea resultante de aplicar una transición y valida las
// invariantes antes de cualquier efecto. No muta la línea recibida: devuelve una copia
// con el delta aplicado, o la violación tipada indicando invariante y valores.
// La cantidad debe ser estrictamente positiva para cualquier tipo de delta.
func ApplyDelta(line entity.MaterialLine, kind DeltaKind, qty decimal.Decimal) (entity.MaterialLine, error) {
	if !qty.GreaterThan(decimal.Zero) {
		return line, violation(line, domain.InvariantPositiveAmount, qty)
	}

	next := line
	switch kind {
	case DeltaAdd:
		next.PlannedQty = line.PlannedQty.Add(qty)
	case DeltaTake:
		next.TakenQty = line.TakenQty.Add(qty)
	case DeltaConsume:
		next.UsedQty = line.UsedQty.Add(qty)
	case DeltaReturn:
		next.ReturnedQty = line.ReturnedQty.Add(qty)
	default:
		return line, domain.ErrInvalidInput
	}

	if err := check(next, qty); err != nil {
		return line, err
	}
	return next, nil
}

// check verifica las invariantes sobre la tupla prospectiva:
//  1. used ≤ taken
//  2. returned ≤ taken − used
//  3. todas las cantidades ≥ 0
//
// taken = used + returned NO se exige aquí: el consumo/devolución parcial es válido;
// esa igualdad solo define la línea "saldada" para la puerta de cierre del trabajo.
func check(line entity.MaterialLine, qty decimal.Decimal) error {
	for _, q := range []decimal.Decimal{line.PlannedQty, line.TakenQty, line.UsedQty, line.ReturnedQty} {
		if q.IsNegative() {
			return violation(line, domain.InvariantNonNegative, qty)
		}
	}
	if line.UsedQty.GreaterThan(line.TakenQty) {
		return violation(line, domain.InvariantUsedLETaken, qty)
	}
	if line.ReturnedQty.GreaterThan(line.TakenQty.Sub(line.UsedQty)) {
		return violation(line, domain.InvariantReturnedLEFree, qty)
	}
	return nil
}

func violation(line entity.MaterialLine, invariant string, qty decimal.Decimal) error {
	return &domain.InvariantViolation{
		Invariant: invariant,
		ProductID: line.ProductID,
		Amount:    qty,
		Taken:     line.TakenQty,
		Used:      line.UsedQty,
		Returned:  line.ReturnedQty,
	}
}
