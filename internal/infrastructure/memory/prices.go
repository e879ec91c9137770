package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain"
)

type priceEntry struct {
	price decimal.Decimal
	uom   string
}

// Prices fuente de precios en memoria por producto.
type Prices struct {
	mu      sync.RWMutex
	entries map[string]priceEntry
}

// NewPrices crea la fuente vacía.
func NewPrices() *Prices {
	return &Prices{entries: make(map[string]priceEntry)}
}

// SetPrice registra precio unitario y unidad de medida de un producto.
func (p *Prices) SetPrice(productID string, price decimal.Decimal, uom string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[productID] = priceEntry{price: price, uom: uom}
}

// UnitPrice devuelve precio y unidad del producto, o ErrNotFound si no está registrado.
func (p *Prices) UnitPrice(_ context.Context, productID string) (decimal.Decimal, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[productID]
	if !ok {
		return decimal.Zero, "", fmt.Errorf("producto %s sin precio: %w", productID, domain.ErrNotFound)
	}
	return entry.price, entry.uom, nil
}
