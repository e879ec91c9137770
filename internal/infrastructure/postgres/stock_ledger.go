package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

var _ materials.StockLedger = (*StockLedger)(nil)

// StockLedger ledger de inventario sobre PostgreSQL: niveles por (producto, ubicación)
// en stock_levels y el registro inmutable de movimientos en stock_movements. Cada
// movimiento corre en su propia transacción con bloqueo de fila.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger construye el ledger con el pool.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// MoveStock descuenta del origen y acredita al destino en una transacción, registrando
// el movimiento. Rechaza con ErrInsufficientStock si el origen no alcanza.
func (l *StockLedger) MoveStock(ctx context.Context, req entity.StockMovementRequest) (entity.StockMovementResult, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return entity.StockMovementResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	available, err := lockLevel(ctx, tx, req.ProductID, req.FromLocationID)
	if err != nil {
		return entity.StockMovementResult{}, err
	}
	if available.LessThan(req.Quantity) {
		return entity.StockMovementResult{}, fmt.Errorf("producto %s en %s (disponible=%s, pedido=%s): %w",
			req.ProductID, req.FromLocationID, available, req.Quantity, domain.ErrInsufficientStock)
	}

	if err := applyDelta(ctx, tx, req.ProductID, req.FromLocationID, req.Quantity.Neg()); err != nil {
		return entity.StockMovementResult{}, err
	}
	if err := applyDelta(ctx, tx, req.ProductID, req.ToLocationID, req.Quantity); err != nil {
		return entity.StockMovementResult{}, err
	}

	movementID := uuid.New().String()
	movedAt := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements
			(id, job_id, product_id, from_location_id, to_location_id,
			 quantity, lot_id, type, origin, reversed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10)`,
		movementID, req.JobID, req.ProductID, req.FromLocationID, req.ToLocationID,
		req.Quantity, req.LotID, req.Type, req.Origin, movedAt,
	); err != nil {
		return entity.StockMovementResult{}, fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return entity.StockMovementResult{}, fmt.Errorf("commit transaction: %w", err)
	}
	return entity.StockMovementResult{MovementID: movementID, MovedAt: movedAt}, nil
}

// ReverseMovement deshace un movimiento aplicado moviendo el stock en sentido inverso y
// marcándolo como revertido. Idempotente: revertir dos veces no duplica el contra-asiento.
func (l *StockLedger) ReverseMovement(ctx context.Context, movementID string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		productID, fromLoc, toLoc string
		quantity                  decimal.Decimal
		reversed                  bool
	)
	err = tx.QueryRow(ctx, `
		SELECT product_id, from_location_id, to_location_id, quantity, reversed
		FROM stock_movements WHERE id = $1
		FOR UPDATE`, movementID,
	).Scan(&productID, &fromLoc, &toLoc, &quantity, &reversed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
		}
		return fmt.Errorf("get stock movement: %w", err)
	}
	if reversed {
		return nil
	}

	if err := applyDelta(ctx, tx, productID, toLoc, quantity.Neg()); err != nil {
		return err
	}
	if err := applyDelta(ctx, tx, productID, fromLoc, quantity); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE stock_movements SET reversed = true WHERE id = $1`, movementID,
	); err != nil {
		return fmt.Errorf("mark movement reversed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// OnHand devuelve el disponible de un producto en una ubicación (cero si no hay registro).
func (l *StockLedger) OnHand(ctx context.Context, productID, locationID string) (decimal.Decimal, error) {
	query := `SELECT quantity FROM stock_levels WHERE product_id = $1 AND location_id = $2`
	var qty decimal.Decimal
	err := l.pool.QueryRow(ctx, query, productID, locationID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get on hand: %w", err)
	}
	return qty, nil
}

// lockLevel bloquea la fila de nivel del origen (FOR UPDATE) y devuelve el disponible
// (cero si no hay registro; no se bloquea nada en ese caso).
func lockLevel(ctx context.Context, tx pgx.Tx, productID, locationID string) (decimal.Decimal, error) {
	query := `
		SELECT quantity FROM stock_levels
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	var qty decimal.Decimal
	err := tx.QueryRow(ctx, query, productID, locationID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("lock stock level: %w", err)
	}
	return qty, nil
}

// applyDelta suma delta al nivel (producto, ubicación), creando la fila si no existe.
func applyDelta(ctx context.Context, tx pgx.Tx, productID, locationID string, delta decimal.Decimal) error {
	query := `
		INSERT INTO stock_levels (product_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = now()`
	if _, err := tx.Exec(ctx, query, productID, locationID, delta); err != nil {
		return fmt.Errorf("update stock level: %w", err)
	}
	return nil
}
