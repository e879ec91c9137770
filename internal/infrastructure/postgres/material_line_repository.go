package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/repository"
)

var _ repository.MaterialLineRepository = (*MaterialLineRepo)(nil)

const materialLineColumns = `
	id, job_id, product_id, unit_measure, unit_price, lot_id,
	planned_qty, taken_qty, used_qty, returned_qty, created_at, updated_at`

// MaterialLineRepo implementación de MaterialLineRepository sobre PostgreSQL
// (usable con pool o tx).
type MaterialLineRepo struct {
	q Querier
}

// NewMaterialLineRepository construye el adaptador de líneas. Pasar pool o tx (Querier).
func NewMaterialLineRepository(q Querier) *MaterialLineRepo {
	return &MaterialLineRepo{q: q}
}

// GetByJobAndProduct obtiene la línea por su clave natural, o nil si no existe.
func (r *MaterialLineRepo) GetByJobAndProduct(jobID, productID string) (*entity.MaterialLine, error) {
	query := `
		SELECT ` + materialLineColumns + `
		FROM material_lines WHERE job_id = $1 AND product_id = $2`
	return r.scanOne(query, jobID, productID)
}

// GetForUpdate obtiene la línea y bloquea la fila (SELECT FOR UPDATE), o nil si no existe.
func (r *MaterialLineRepo) GetForUpdate(jobID, productID string) (*entity.MaterialLine, error) {
	query := `
		SELECT ` + materialLineColumns + `
		FROM material_lines WHERE job_id = $1 AND product_id = $2
		FOR UPDATE`
	return r.scanOne(query, jobID, productID)
}

func (r *MaterialLineRepo) scanOne(query, jobID, productID string) (*entity.MaterialLine, error) {
	var l entity.MaterialLine
	err := r.q.QueryRow(context.Background(), query, jobID, productID).Scan(
		&l.ID, &l.JobID, &l.ProductID, &l.UnitMeasure, &l.UnitPrice, &l.LotID,
		&l.PlannedQty, &l.TakenQty, &l.UsedQty, &l.ReturnedQty, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material line: %w", err)
	}
	return &l, nil
}

// ListByJob lista todas las líneas de un trabajo.
func (r *MaterialLineRepo) ListByJob(jobID string) ([]*entity.MaterialLine, error) {
	query := `
		SELECT ` + materialLineColumns + `
		FROM material_lines WHERE job_id = $1
		ORDER BY created_at, product_id`
	rows, err := r.q.Query(context.Background(), query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list material lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.MaterialLine
	for rows.Next() {
		var l entity.MaterialLine
		if err := rows.Scan(
			&l.ID, &l.JobID, &l.ProductID, &l.UnitMeasure, &l.UnitPrice, &l.LotID,
			&l.PlannedQty, &l.TakenQty, &l.UsedQty, &l.ReturnedQty, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan material line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// Upsert inserta o actualiza la línea por su clave natural (job_id, product_id).
func (r *MaterialLineRepo) Upsert(line *entity.MaterialLine) error {
	query := `
		INSERT INTO material_lines (` + materialLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (job_id, product_id)
		DO UPDATE SET
			unit_measure = EXCLUDED.unit_measure,
			unit_price   = EXCLUDED.unit_price,
			lot_id       = EXCLUDED.lot_id,
			planned_qty  = EXCLUDED.planned_qty,
			taken_qty    = EXCLUDED.taken_qty,
			used_qty     = EXCLUDED.used_qty,
			returned_qty = EXCLUDED.returned_qty,
			updated_at   = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.JobID, line.ProductID, line.UnitMeasure, line.UnitPrice, line.LotID,
		line.PlannedQty, line.TakenQty, line.UsedQty, line.ReturnedQty, line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert material line: %w", err)
	}
	return nil
}
