package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

var _ materials.JobRegistry = (*JobRegistry)(nil)

// JobRegistry lectura de trabajos sobre PostgreSQL.
type JobRegistry struct {
	q Querier
}

// NewJobRegistry construye el adaptador. Pasar pool o tx (Querier).
func NewJobRegistry(q Querier) *JobRegistry {
	return &JobRegistry{q: q}
}

// GetJob obtiene el contexto del trabajo, o nil si no existe. Cuadrilla y técnico son
// opcionales (COALESCE a vacío).
func (r *JobRegistry) GetJob(ctx context.Context, jobID string) (*entity.Job, error) {
	query := `
		SELECT id, name, warehouse_id,
		       COALESCE(team_id, ''), COALESCE(technician_id, ''), COALESCE(responsible, '')
		FROM jobs WHERE id = $1`
	var j entity.Job
	err := r.q.QueryRow(ctx, query, jobID).Scan(
		&j.ID, &j.Name, &j.WarehouseID, &j.TeamID, &j.TechnicianID, &j.Responsible,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}
