// Package memory implementa adaptadores en memoria de los puertos del motor de
// materiales. Sirven para tests y para correr el servicio sin infraestructura real.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/repository"
)

// LineStore repositorio de líneas de material en memoria. Implementa también TxRunner:
// Run toma un snapshot del estado y lo restaura si la función falla, imitando el
// rollback transaccional del adaptador de PostgreSQL.
type LineStore struct {
	mu    sync.Mutex
	lines map[string]entity.MaterialLine // clave job_id/product_id

	// FailUpsertOn fuerza el fallo de Upsert para un producto dado. Para probar el
	// camino de compensación cuando la confirmación falla después de mover stock.
	FailUpsertOn string
}

// NewLineStore crea el repositorio vacío.
func NewLineStore() *LineStore {
	return &LineStore{lines: make(map[string]entity.MaterialLine)}
}

func lineKey(jobID, productID string) string {
	return jobID + "/" + productID
}

// GetByJobAndProduct devuelve una copia de la línea o nil si no existe.
func (s *LineStore) GetByJobAndProduct(jobID, productID string) (*entity.MaterialLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[lineKey(jobID, productID)]
	if !ok {
		return nil, nil
	}
	cp := line
	return &cp, nil
}

// GetForUpdate en memoria equivale a GetByJobAndProduct: la exclusión la da el mutex.
func (s *LineStore) GetForUpdate(jobID, productID string) (*entity.MaterialLine, error) {
	return s.GetByJobAndProduct(jobID, productID)
}

// ListByJob devuelve copias de todas las líneas del trabajo.
func (s *LineStore) ListByJob(jobID string) ([]*entity.MaterialLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.MaterialLine
	for _, line := range s.lines {
		if line.JobID == jobID {
			cp := line
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Upsert inserta o reemplaza la línea.
func (s *LineStore) Upsert(line *entity.MaterialLine) error {
	if s.FailUpsertOn != "" && line.ProductID == s.FailUpsertOn {
		return fmt.Errorf("upsert forzado a fallar para producto %s", line.ProductID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[lineKey(line.JobID, line.ProductID)] = *line
	return nil
}

// Run ejecuta fn con snapshot y rollback ante error.
func (s *LineStore) Run(ctx context.Context, fn func(lines repository.MaterialLineRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := make(map[string]entity.MaterialLine, len(s.lines))
	for k, v := range s.lines {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.lines = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

var (
	_ repository.MaterialLineRepository = (*LineStore)(nil)
)
