package materials

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas Prometheus del motor de transiciones, expuestas en /metrics.
var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esfsm_material_transitions_total",
		Help: "Lotes de transición de materiales procesados, por tipo y resultado.",
	}, []string{"kind", "result"})

	ledgerReversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esfsm_ledger_reversals_total",
		Help: "Reversas de compensación emitidas al ledger, por resultado.",
	}, []string{"result"})
)

// Resultados usados como etiqueta en transitionsTotal.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultLedger   = "ledger_error"
	resultConflict = "conflict"
	resultInternal = "internal_error"
)
