package materials

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Palifra/esfsm-stock/internal/domain"
)

func TestJobLocks_ExclusionPorTrabajo(t *testing.T) {
	locks := newJobLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "job-1", time.Second)
	require.NoError(t, err)

	// El mismo trabajo no se adquiere dos veces dentro del plazo
	_, err = locks.acquire(ctx, "job-1", 20*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// Otro trabajo no se ve afectado
	release2, err := locks.acquire(ctx, "job-2", 20*time.Millisecond)
	require.NoError(t, err)
	release2()

	release()

	// Liberado, se puede volver a adquirir
	release3, err := locks.acquire(ctx, "job-1", 20*time.Millisecond)
	require.NoError(t, err)
	release3()
}

func TestJobLocks_EsperaHastaLiberacion(t *testing.T) {
	locks := newJobLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "job-1", time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	acquired := false
	go func() {
		defer wg.Done()
		r, err := locks.acquire(ctx, "job-1", time.Second)
		if err == nil {
			acquired = true
			r()
		}
	}()

	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	assert.True(t, acquired)
}

func TestJobLocks_LiberacionEliminaLaEntrada(t *testing.T) {
	locks := newJobLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "job-1", time.Second)
	require.NoError(t, err)

	locks.mu.Lock()
	assert.Len(t, locks.locks, 1)
	locks.mu.Unlock()

	release()

	locks.mu.Lock()
	assert.Empty(t, locks.locks, "sin holders ni waiters el registro no debe retener la entrada")
	locks.mu.Unlock()
}

func TestJobLocks_TimeoutEliminaSuReferencia(t *testing.T) {
	locks := newJobLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "job-1", time.Second)
	require.NoError(t, err)

	_, err = locks.acquire(ctx, "job-1", 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// El waiter vencido ya no cuenta; al liberar el holder la entrada desaparece
	release()
	locks.mu.Lock()
	assert.Empty(t, locks.locks)
	locks.mu.Unlock()
}

func TestJobLocks_ContextoCanceladoAborta(t *testing.T) {
	locks := newJobLocks()

	release, err := locks.acquire(context.Background(), "job-1", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, "job-1", time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
