package materials

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio
// de líneas atado a esa tx. Garantiza que los deltas de un lote se confirman atómicamente.
type TxRunner interface {
	Run(ctx context.Context, fn func(lines repository.MaterialLineRepository) error) error
}

// LocationDirectory directorio de ubicaciones: resuelve recursos con nombre (vehículo de
// cuadrilla, vehículo de técnico) a su ubicación de stock, más las ubicaciones fijas.
type LocationDirectory interface {
	// VehicleLocation devuelve la ubicación del vehículo del recurso, o "" si el recurso
	// no tiene vehículo con ubicación aprovisionada (se trata como ausente, no como error).
	VehicleLocation(ctx context.Context, resourceID string) (string, error)
	// WarehouseLocation devuelve la ubicación de entrada de la bodega del trabajo.
	// Es configuración obligatoria: su ausencia es un error fatal, no un default silencioso.
	WarehouseLocation(ctx context.Context, jobID string) (string, error)
	// ConsumptionLocation devuelve la ubicación sumidero de consumo (cliente).
	ConsumptionLocation(ctx context.Context) (string, error)
}

// StockLedger sistema externo de inventario que ejecuta los movimientos físicos.
// Es el único paso potencialmente lento del lote; toda llamada lleva plazo.
type StockLedger interface {
	MoveStock(ctx context.Context, req entity.StockMovementRequest) (entity.StockMovementResult, error)
	// ReverseMovement revierte un movimiento ya aplicado (compensación de lote parcial).
	ReverseMovement(ctx context.Context, movementID string) error
	// OnHand consulta la cantidad disponible de un producto en una ubicación.
	OnHand(ctx context.Context, productID, locationID string) (decimal.Decimal, error)
}

// JobRegistry registro de trabajos (solo lectura desde el núcleo de materiales).
type JobRegistry interface {
	// GetJob devuelve el contexto del trabajo o nil si no existe.
	GetJob(ctx context.Context, jobID string) (*entity.Job, error)
}

// PriceSource fuente de precios unitarios por producto, usada para el snapshot de precio
// al crear una línea y para el refresco explícito.
type PriceSource interface {
	// UnitPrice devuelve precio unitario y unidad de medida del producto.
	UnitPrice(ctx context.Context, productID string) (decimal.Decimal, string, error)
}
