package repository

import "github.com/Palifra/esfsm-stock/internal/domain/entity"

// MaterialLineRepository define el puerto de persistencia para líneas de material.
// La clave natural es (job_id, product_id); es el único estado que el núcleo posee.
type MaterialLineRepository interface {
	// GetByJobAndProduct devuelve la línea o nil si no existe.
	GetByJobAndProduct(jobID, productID string) (*entity.MaterialLine, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE) dentro de una tx,
	// o devuelve nil si la fila aún no existe.
	GetForUpdate(jobID, productID string) (*entity.MaterialLine, error)
	ListByJob(jobID string) ([]*entity.MaterialLine, error)
	Upsert(line *entity.MaterialLine) error
}
