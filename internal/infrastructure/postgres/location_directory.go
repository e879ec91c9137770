package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain"
)

var _ materials.LocationDirectory = (*LocationDirectory)(nil)

// LocationDirectory directorio de ubicaciones sobre PostgreSQL: ubicaciones de vehículo
// por recurso (tabla resource_locations), ubicación de entrada de la bodega del trabajo
// y el sumidero de consumo.
type LocationDirectory struct {
	pool *pgxpool.Pool
}

// NewLocationDirectory construye el directorio con el pool.
func NewLocationDirectory(pool *pgxpool.Pool) *LocationDirectory {
	return &LocationDirectory{pool: pool}
}

// VehicleLocation devuelve la ubicación del vehículo del recurso, o "" si no tiene.
func (d *LocationDirectory) VehicleLocation(ctx context.Context, resourceID string) (string, error) {
	query := `SELECT location_id FROM resource_locations WHERE resource_id = $1`
	var locationID string
	err := d.pool.QueryRow(ctx, query, resourceID).Scan(&locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get vehicle location: %w", err)
	}
	return locationID, nil
}

// WarehouseLocation devuelve la ubicación de entrada de la bodega del trabajo, o "" si
// la bodega no tiene ubicación configurada.
func (d *LocationDirectory) WarehouseLocation(ctx context.Context, jobID string) (string, error) {
	query := `
		SELECT COALESCE(w.stock_location_id, '')
		FROM jobs j
		JOIN warehouses w ON w.id = j.warehouse_id
		WHERE j.id = $1`
	var locationID string
	err := d.pool.QueryRow(ctx, query, jobID).Scan(&locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("trabajo %s sin bodega: %w", jobID, domain.ErrLocationNotConfigured)
		}
		return "", fmt.Errorf("get warehouse location: %w", err)
	}
	return locationID, nil
}

// ConsumptionLocation devuelve el sumidero de consumo (única ubicación con kind = consumption).
func (d *LocationDirectory) ConsumptionLocation(ctx context.Context) (string, error) {
	query := `SELECT id FROM locations WHERE kind = 'consumption' LIMIT 1`
	var locationID string
	err := d.pool.QueryRow(ctx, query).Scan(&locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("sumidero de consumo: %w", domain.ErrLocationNotConfigured)
		}
		return "", fmt.Errorf("get consumption location: %w", err)
	}
	return locationID, nil
}

// EnsureVehicleLocation aprovisiona la ubicación de vehículo de un recurso si no existe
// y devuelve su id. Idempotente: registrar dos veces el mismo recurso devuelve la misma
// ubicación.
func (d *LocationDirectory) EnsureVehicleLocation(ctx context.Context, resourceID, name string) (string, error) {
	existing, err := d.VehicleLocation(ctx, resourceID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	locationID := uuid.New().String()
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO locations (id, name, kind) VALUES ($1, $2, 'vehicle')`,
		locationID, name,
	); err != nil {
		return "", fmt.Errorf("insert vehicle location: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO resource_locations (resource_id, location_id) VALUES ($1, $2)`,
		resourceID, locationID,
	); err != nil {
		if isUniqueViolation(err) {
			// Carrera con otro aprovisionamiento del mismo recurso: usar el ganador.
			_ = tx.Rollback(ctx)
			return d.VehicleLocation(ctx, resourceID)
		}
		return "", fmt.Errorf("insert resource location: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return locationID, nil
}
