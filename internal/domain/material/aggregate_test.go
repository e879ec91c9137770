package material_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/material"
)

func TestRecompute_SinLineas(t *testing.T) {
	agg := material.Recompute(nil)

	assert.Equal(t, 0, agg.MaterialCount)
	assert.True(t, agg.MaterialTotal.IsZero())
	assert.False(t, agg.HasOutstandingMaterials)
	assert.True(t, agg.CanComplete())
}

func TestRecompute_TotalEsSumaDeConsumoPorPrecio(t *testing.T) {
	lines := []*entity.MaterialLine{
		{ProductID: "a", UnitPrice: d("10"), TakenQty: d("4"), UsedQty: d("4")},
		{ProductID: "b", UnitPrice: d("2.5"), TakenQty: d("2"), UsedQty: d("2")},
	}

	agg := material.Recompute(lines)

	assert.Equal(t, 2, agg.MaterialCount)
	// 4×10 + 2×2.5 = 45
	assert.True(t, agg.MaterialTotal.Equal(d("45")))
	assert.False(t, agg.HasOutstandingMaterials)
	assert.True(t, agg.CanComplete())
}

func TestRecompute_LineaPendienteBloqueaCierre(t *testing.T) {
	lines := []*entity.MaterialLine{
		{ProductID: "a", TakenQty: d("5"), UsedQty: d("3"), ReturnedQty: d("0")},
	}

	agg := material.Recompute(lines)

	assert.True(t, agg.HasOutstandingMaterials)
	assert.False(t, agg.CanComplete())
}

func TestRecompute_PlanificadoSinRetirarNoBloquea(t *testing.T) {
	lines := []*entity.MaterialLine{
		{ProductID: "a", PlannedQty: d("5")},
	}

	agg := material.Recompute(lines)

	assert.False(t, agg.HasOutstandingMaterials)
	assert.True(t, agg.CanComplete())
}

func TestRecompute_DevolucionCompletaDesbloquea(t *testing.T) {
	lines := []*entity.MaterialLine{
		{ProductID: "a", TakenQty: d("5"), UsedQty: d("3"), ReturnedQty: d("2")},
	}

	agg := material.Recompute(lines)

	assert.False(t, agg.HasOutstandingMaterials)
	assert.True(t, agg.CanComplete())
}
