package memory

import (
	"context"
	"sync"

	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

// Registry registro de trabajos en memoria.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]entity.Job
}

// NewRegistry crea el registro vacío.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]entity.Job)}
}

// PutJob registra o reemplaza un trabajo.
func (r *Registry) PutJob(job entity.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// GetJob devuelve una copia del trabajo o nil si no existe.
func (r *Registry) GetJob(_ context.Context, jobID string) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := job
	return &cp, nil
}
