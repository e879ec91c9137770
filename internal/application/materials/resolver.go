package materials

import (
	"context"
	"fmt"

	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

// Resolver determina la ubicación de recurso de un trabajo aplicando la cadena de
// prioridad, con resultado etiquetado para que callers y tests puedan afirmar qué rama
// resolvió. Función pura del contexto del trabajo más las consultas al directorio.
//
// Orden, gana la primera coincidencia:
//  1. vehículo de la cuadrilla asignada
//  2. vehículo del técnico asignado
//  3. ubicación de entrada de la bodega del trabajo (nunca puede faltar)
type Resolver struct {
	directory LocationDirectory
}

// NewResolver construye el resolutor sobre el directorio de ubicaciones.
func NewResolver(directory LocationDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve devuelve la ubicación de recurso del trabajo. Un vehículo sin ubicación
// aprovisionada se trata como ausente y la cadena sigue a la rama siguiente; que falte
// la ubicación de bodega es un error de configuración, nunca un default silencioso.
func (r *Resolver) Resolve(ctx context.Context, job *entity.Job) (entity.ResolvedLocation, error) {
	if job.TeamID != "" {
		loc, err := r.directory.VehicleLocation(ctx, job.TeamID)
		if err != nil {
			return entity.ResolvedLocation{}, fmt.Errorf("ubicación de cuadrilla %s: %w", job.TeamID, err)
		}
		if loc != "" {
			return entity.ResolvedLocation{LocationID: loc, Kind: entity.SourceTeamVehicle}, nil
		}
	}

	if job.TechnicianID != "" {
		loc, err := r.directory.VehicleLocation(ctx, job.TechnicianID)
		if err != nil {
			return entity.ResolvedLocation{}, fmt.Errorf("ubicación de técnico %s: %w", job.TechnicianID, err)
		}
		if loc != "" {
			return entity.ResolvedLocation{LocationID: loc, Kind: entity.SourceTechnicianVehicle}, nil
		}
	}

	loc, err := r.directory.WarehouseLocation(ctx, job.ID)
	if err != nil {
		return entity.ResolvedLocation{}, fmt.Errorf("ubicación de bodega para trabajo %s: %w", job.ID, err)
	}
	if loc == "" {
		return entity.ResolvedLocation{}, fmt.Errorf("trabajo %s: %w", job.ID, domain.ErrLocationNotConfigured)
	}
	return entity.ResolvedLocation{LocationID: loc, Kind: entity.SourceWarehouse}, nil
}
