package memory

import (
	"context"
	"sync"
)

// Directory directorio de ubicaciones en memoria: recurso → ubicación de vehículo,
// trabajo → ubicación de bodega, más el sumidero de consumo.
type Directory struct {
	mu          sync.RWMutex
	vehicles    map[string]string // resource_id → location_id
	warehouses  map[string]string // job_id → location_id
	consumption string
}

// NewDirectory crea el directorio con el sumidero de consumo dado.
func NewDirectory(consumptionLoc string) *Directory {
	return &Directory{
		vehicles:    make(map[string]string),
		warehouses:  make(map[string]string),
		consumption: consumptionLoc,
	}
}

// SetVehicleLocation registra la ubicación del vehículo de un recurso.
func (d *Directory) SetVehicleLocation(resourceID, locationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vehicles[resourceID] = locationID
}

// SetWarehouseLocation registra la ubicación de bodega de un trabajo.
func (d *Directory) SetWarehouseLocation(jobID, locationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warehouses[jobID] = locationID
}

// VehicleLocation devuelve la ubicación del vehículo del recurso, o "" si no tiene.
func (d *Directory) VehicleLocation(_ context.Context, resourceID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vehicles[resourceID], nil
}

// WarehouseLocation devuelve la ubicación de bodega del trabajo, o "" si no está configurada.
func (d *Directory) WarehouseLocation(_ context.Context, jobID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.warehouses[jobID], nil
}

// ConsumptionLocation devuelve el sumidero de consumo.
func (d *Directory) ConsumptionLocation(_ context.Context) (string, error) {
	return d.consumption, nil
}
