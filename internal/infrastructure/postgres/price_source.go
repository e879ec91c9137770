package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain"
)

var _ materials.PriceSource = (*PriceSource)(nil)

// PriceSource fuente de precios unitarios sobre el catálogo de productos.
type PriceSource struct {
	q Querier
}

// NewPriceSource construye el adaptador. Pasar pool o tx (Querier).
func NewPriceSource(q Querier) *PriceSource {
	return &PriceSource{q: q}
}

// UnitPrice devuelve precio unitario y unidad de medida del producto.
func (p *PriceSource) UnitPrice(ctx context.Context, productID string) (decimal.Decimal, string, error) {
	query := `SELECT unit_price, unit_measure FROM products WHERE id = $1`
	var (
		price decimal.Decimal
		uom   string
	)
	err := p.q.QueryRow(ctx, query, productID).Scan(&price, &uom)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, "", fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
		}
		return decimal.Zero, "", fmt.Errorf("get unit price: %w", err)
	}
	return price, uom, nil
}
