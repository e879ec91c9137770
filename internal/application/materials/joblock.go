package materials

import (
	"context"
	"sync"
	"time"

	"github.com/Palifra/esfsm-stock/internal/domain"
)

// jobLocks serializa los lotes por trabajo: dos lotes sobre el mismo trabajo nunca se
// intercalan, lotes sobre trabajos distintos corren en paralelo. La espera por el candado
// está acotada; si se agota el plazo el lote se rechaza con ErrConcurrencyConflict y el
// caller puede reintentar. Las entradas del registro se refcuentan y se eliminan cuando
// ningún holder ni waiter las referencia, para que el mapa no crezca con el paso de
// trabajos por el proceso.
type jobLocks struct {
	mu    sync.Mutex
	locks map[string]*jobLock
}

type jobLock struct {
	ch   chan struct{}
	refs int // holders + waiters; con cero la entrada se elimina
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[string]*jobLock)}
}

// acquire obtiene el candado exclusivo del trabajo o falla tras la espera máxima.
// Devuelve la función de liberación; el caller debe llamarla siempre (defer).
func (j *jobLocks) acquire(ctx context.Context, jobID string, wait time.Duration) (func(), error) {
	j.mu.Lock()
	l, ok := j.locks[jobID]
	if !ok {
		l = &jobLock{ch: make(chan struct{}, 1)}
		j.locks[jobID] = l
	}
	l.refs++
	j.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			j.unref(jobID, l)
		}, nil
	case <-timer.C:
		j.unref(jobID, l)
		return nil, domain.ErrConcurrencyConflict
	case <-ctx.Done():
		j.unref(jobID, l)
		return nil, ctx.Err()
	}
}

// unref suelta una referencia y elimina la entrada si quedó sin holders ni waiters.
// Un acquire posterior crea un canal nuevo; los que aún referencian el viejo terminan
// su ciclo sobre él sin interferir.
func (j *jobLocks) unref(jobID string, l *jobLock) {
	j.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(j.locks, jobID)
	}
	j.mu.Unlock()
}
