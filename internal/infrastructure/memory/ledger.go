package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

type movementRecord struct {
	req      entity.StockMovementRequest
	reversed bool
}

// Ledger implementación en memoria del ledger de inventario: mantiene niveles de stock
// por (producto, ubicación) y el registro de movimientos aplicados. Permite inyectar
// fallas para probar los caminos de compensación del motor.
type Ledger struct {
	mu        sync.Mutex
	levels    map[string]decimal.Decimal // clave product_id/location_id
	movements map[string]*movementRecord

	// FailOn fuerza el fallo de MoveStock para un producto dado.
	FailOn map[string]error
	// ReverseErr fuerza el fallo de toda reversa de compensación.
	ReverseErr error
	// MoveDelay retrasa cada MoveStock, respetando la cancelación del contexto.
	// Para probar el plazo por llamada del motor.
	MoveDelay time.Duration
}

// NewLedger crea el ledger vacío.
func NewLedger() *Ledger {
	return &Ledger{
		levels:    make(map[string]decimal.Decimal),
		movements: make(map[string]*movementRecord),
		FailOn:    make(map[string]error),
	}
}

func levelKey(productID, locationID string) string {
	return productID + "/" + locationID
}

// SetOnHand fija el disponible de un producto en una ubicación.
func (l *Ledger) SetOnHand(productID, locationID string, qty decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[levelKey(productID, locationID)] = qty
}

// OnHand devuelve el disponible de un producto en una ubicación (cero si no hay registro).
func (l *Ledger) OnHand(_ context.Context, productID, locationID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[levelKey(productID, locationID)], nil
}

// MoveStock descuenta del origen y acredita al destino, registrando el movimiento.
// Rechaza con ErrInsufficientStock si el origen no alcanza.
func (l *Ledger) MoveStock(ctx context.Context, req entity.StockMovementRequest) (entity.StockMovementResult, error) {
	if l.MoveDelay > 0 {
		select {
		case <-time.After(l.MoveDelay):
		case <-ctx.Done():
			return entity.StockMovementResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return entity.StockMovementResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err, ok := l.FailOn[req.ProductID]; ok {
		return entity.StockMovementResult{}, err
	}

	from := levelKey(req.ProductID, req.FromLocationID)
	if l.levels[from].LessThan(req.Quantity) {
		return entity.StockMovementResult{}, fmt.Errorf("producto %s en %s (disponible=%s, pedido=%s): %w",
			req.ProductID, req.FromLocationID, l.levels[from], req.Quantity, domain.ErrInsufficientStock)
	}

	to := levelKey(req.ProductID, req.ToLocationID)
	l.levels[from] = l.levels[from].Sub(req.Quantity)
	l.levels[to] = l.levels[to].Add(req.Quantity)

	id := uuid.New().String()
	l.movements[id] = &movementRecord{req: req}
	return entity.StockMovementResult{MovementID: id, MovedAt: time.Now()}, nil
}

// ReverseMovement deshace un movimiento aplicado moviendo el stock en sentido inverso.
func (l *Ledger) ReverseMovement(_ context.Context, movementID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ReverseErr != nil {
		return l.ReverseErr
	}

	rec, ok := l.movements[movementID]
	if !ok {
		return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
	}
	if rec.reversed {
		return nil
	}

	from := levelKey(rec.req.ProductID, rec.req.FromLocationID)
	to := levelKey(rec.req.ProductID, rec.req.ToLocationID)
	l.levels[to] = l.levels[to].Sub(rec.req.Quantity)
	l.levels[from] = l.levels[from].Add(rec.req.Quantity)
	rec.reversed = true
	return nil
}

// Movements devuelve los movimientos no revertidos, para aserciones en tests.
func (l *Ledger) Movements() []entity.StockMovementRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entity.StockMovementRequest
	for _, rec := range l.movements {
		if !rec.reversed {
			out = append(out, rec.req)
		}
	}
	return out
}
