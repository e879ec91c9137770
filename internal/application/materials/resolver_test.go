package materials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/infrastructure/memory"
)

func TestResolve_GanaVehiculoDeCuadrilla(t *testing.T) {
	dir := memory.NewDirectory("loc-consumo")
	dir.SetVehicleLocation("team-1", "loc-cuadrilla")
	dir.SetVehicleLocation("tech-1", "loc-tecnico")
	dir.SetWarehouseLocation("job-1", "loc-bodega")
	resolver := materials.NewResolver(dir)

	job := &entity.Job{ID: "job-1", TeamID: "team-1", TechnicianID: "tech-1"}
	resolved, err := resolver.Resolve(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "loc-cuadrilla", resolved.LocationID)
	assert.Equal(t, entity.SourceTeamVehicle, resolved.Kind)
}

func TestResolve_CuadrillaSinVehiculoCaeAlTecnico(t *testing.T) {
	dir := memory.NewDirectory("loc-consumo")
	// team-1 existe pero no tiene vehículo aprovisionado
	dir.SetVehicleLocation("tech-1", "loc-tecnico")
	dir.SetWarehouseLocation("job-1", "loc-bodega")
	resolver := materials.NewResolver(dir)

	job := &entity.Job{ID: "job-1", TeamID: "team-1", TechnicianID: "tech-1"}
	resolved, err := resolver.Resolve(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "loc-tecnico", resolved.LocationID)
	assert.Equal(t, entity.SourceTechnicianVehicle, resolved.Kind)
}

func TestResolve_SinRecursosCaeABodega(t *testing.T) {
	dir := memory.NewDirectory("loc-consumo")
	dir.SetWarehouseLocation("job-1", "loc-bodega")
	resolver := materials.NewResolver(dir)

	job := &entity.Job{ID: "job-1"}
	resolved, err := resolver.Resolve(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "loc-bodega", resolved.LocationID)
	assert.Equal(t, entity.SourceWarehouse, resolved.Kind)
}

func TestResolve_SinBodegaConfiguradaEsError(t *testing.T) {
	dir := memory.NewDirectory("loc-consumo")
	resolver := materials.NewResolver(dir)

	job := &entity.Job{ID: "job-1"}
	_, err := resolver.Resolve(context.Background(), job)

	require.ErrorIs(t, err, domain.ErrLocationNotConfigured)
}
