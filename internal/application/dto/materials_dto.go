package dto

import (
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/material"
)

// MaterialRequestDTO una línea de un lote de transición.
type MaterialRequestDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	LotID     string          `json:"lot_id,omitempty"`
}

// MaterialBatchRequest cuerpo de los endpoints de transición por lote.
type MaterialBatchRequest struct {
	Materials []MaterialRequestDTO `json:"materials"`
}

// ToRequests convierte el cuerpo a las peticiones del motor.
func (r MaterialBatchRequest) ToRequests() []materials.MaterialRequest {
	reqs := make([]materials.MaterialRequest, 0, len(r.Materials))
	for _, m := range r.Materials {
		reqs = append(reqs, materials.MaterialRequest{
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			LotID:     m.LotID,
		})
	}
	return reqs
}

// MaterialLineDTO línea de material en respuestas.
type MaterialLineDTO struct {
	ID           string          `json:"id"`
	JobID        string          `json:"job_id"`
	ProductID    string          `json:"product_id"`
	UnitMeasure  string          `json:"unit_measure"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LotID        string          `json:"lot_id,omitempty"`
	PlannedQty   decimal.Decimal `json:"planned_qty"`
	TakenQty     decimal.Decimal `json:"taken_qty"`
	UsedQty      decimal.Decimal `json:"used_qty"`
	ReturnedQty  decimal.Decimal `json:"returned_qty"`
	AvailableQty decimal.Decimal `json:"available_to_return_qty"`
	Subtotal     decimal.Decimal `json:"price_subtotal"`
	State        string          `json:"state"`
}

// MaterialLineFromEntity arma el DTO de una línea, incluyendo las cantidades derivadas.
func MaterialLineFromEntity(l *entity.MaterialLine) MaterialLineDTO {
	return MaterialLineDTO{
		ID:           l.ID,
		JobID:        l.JobID,
		ProductID:    l.ProductID,
		UnitMeasure:  l.UnitMeasure,
		UnitPrice:    l.UnitPrice,
		LotID:        l.LotID,
		PlannedQty:   l.PlannedQty,
		TakenQty:     l.TakenQty,
		UsedQty:      l.UsedQty,
		ReturnedQty:  l.ReturnedQty,
		AvailableQty: l.AvailableToReturnQty(),
		Subtotal:     l.PriceSubtotal(),
		State:        l.State(),
	}
}

// MaterialLinesFromEntities convierte una lista de líneas.
func MaterialLinesFromEntities(lines []*entity.MaterialLine) []MaterialLineDTO {
	out := make([]MaterialLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, MaterialLineFromEntity(l))
	}
	return out
}

// TakeSuggestionDTO línea del previo de retiro.
type TakeSuggestionDTO struct {
	ProductID    string          `json:"product_id"`
	PlannedQty   decimal.Decimal `json:"planned_qty"`
	TakenQty     decimal.Decimal `json:"taken_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	OnHandQty    decimal.Decimal `json:"on_hand_qty"`
	SuggestedQty decimal.Decimal `json:"suggested_qty"`
	Status       string          `json:"status"`
}

// TakeSuggestionsFromEngine convierte las sugerencias del motor.
func TakeSuggestionsFromEngine(suggestions []materials.TakeSuggestion) []TakeSuggestionDTO {
	out := make([]TakeSuggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, TakeSuggestionDTO{
			ProductID:    s.ProductID,
			PlannedQty:   s.PlannedQty,
			TakenQty:     s.TakenQty,
			RemainingQty: s.RemainingQty,
			OnHandQty:    s.OnHandQty,
			SuggestedQty: s.SuggestedQty,
			Status:       s.Status,
		})
	}
	return out
}

// AggregateDTO resumen de materiales de un trabajo.
type AggregateDTO struct {
	MaterialCount           int             `json:"material_count"`
	MaterialTotal           decimal.Decimal `json:"material_total"`
	HasOutstandingMaterials bool            `json:"has_outstanding_materials"`
}

// AggregateFromDomain arma el DTO del agregado.
func AggregateFromDomain(a material.Aggregate) AggregateDTO {
	return AggregateDTO{
		MaterialCount:           a.MaterialCount,
		MaterialTotal:           a.MaterialTotal,
		HasOutstandingMaterials: a.HasOutstandingMaterials,
	}
}
