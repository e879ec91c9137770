package materials

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/domain/material"
	"github.com/Palifra/esfsm-stock/internal/domain/repository"
	"github.com/Palifra/esfsm-stock/pkg/logger"
)

// Config parámetros de operación del motor.
type Config struct {
	// LockWait espera máxima por el candado exclusivo de un trabajo antes de rechazar
	// el lote con ErrConcurrencyConflict.
	LockWait time.Duration
	// LedgerTimeout plazo por llamada individual al ledger. Un ledger que excede el
	// plazo se trata como falla (aborto del lote), nunca se deja pendiente.
	LedgerTimeout time.Duration
}

const (
	defaultLockWait      = 2 * time.Second
	defaultLedgerTimeout = 5 * time.Second
)

// MaterialRequest una línea de un lote: producto y cantidad solicitada.
type MaterialRequest struct {
	ProductID string
	Quantity  decimal.Decimal
	LotID     string // opcional, solo relevante en retiros; se propaga al ledger
}

// Estados de disponibilidad del previo de retiro.
const (
	TakeStatusOK      = "ok"
	TakeStatusPartial = "partial"
	TakeStatusNoStock = "no_stock"
)

// TakeSuggestion línea del previo de retiro: cuánto falta por retirar y cuánto hay
// disponible en la ubicación origen.
type TakeSuggestion struct {
	ProductID    string
	PlannedQty   decimal.Decimal
	TakenQty     decimal.Decimal
	RemainingQty decimal.Decimal // planificada − retirada
	OnHandQty    decimal.Decimal
	SuggestedQty decimal.Decimal // min(restante, disponible)
	Status       string
}

// Engine motor de transiciones del ciclo de materiales. Todo cambio de cantidades de una
// línea pasa por aquí: valida el lote completo contra las invariantes, pide los
// movimientos físicos al ledger y confirma los deltas en una sola transacción.
//
// Protocolo por lote (todo-o-nada):
//  1. validar el lote y cada delta prospectivo antes de cualquier efecto externo
//  2. resolver ubicaciones una sola vez
//  3. pedir los movimientos al ledger, con plazo; ante falla parcial, revertir en orden
//     inverso lo ya aplicado antes de reportar el error
//  4. confirmar los deltas atómicamente (tx con bloqueo de fila)
//  5. el agregado del trabajo se recalcula solo sobre estado confirmado
type Engine struct {
	cfg       Config
	txRunner  TxRunner
	lines     repository.MaterialLineRepository
	directory LocationDirectory
	resolver  *Resolver
	ledger    StockLedger
	registry  JobRegistry
	prices    PriceSource
	locks     *jobLocks
	log       *logger.Logger
}

// NewEngine construye el motor con sus colaboradores.
func NewEngine(
	cfg Config,
	txRunner TxRunner,
	lines repository.MaterialLineRepository,
	directory LocationDirectory,
	ledger StockLedger,
	registry JobRegistry,
	prices PriceSource,
	log *logger.Logger,
) *Engine {
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = defaultLedgerTimeout
	}
	return &Engine{
		cfg:       cfg,
		txRunner:  txRunner,
		lines:     lines,
		directory: directory,
		resolver:  NewResolver(directory),
		ledger:    ledger,
		registry:  registry,
		prices:    prices,
		locks:     newJobLocks(),
		log:       log,
	}
}

// AddMaterials planifica materiales sobre un trabajo: crea la línea (job, product) o
// incrementa la planificada de la existente. No mueve stock físico.
func (e *Engine) AddMaterials(ctx context.Context, jobID string, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	return e.transition(ctx, jobID, material.DeltaAdd, reqs)
}

// TakeMaterials retira materiales de la bodega hacia la ubicación de recurso del trabajo.
// Retirar por encima de lo planificado está permitido: la planificación es orientativa,
// solo las invariantes de cantidades se imponen.
func (e *Engine) TakeMaterials(ctx context.Context, jobID string, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	return e.transition(ctx, jobID, material.DeltaTake, reqs)
}

// ConsumeMaterials consume materiales retirados sobre el trabajo (recurso → cliente).
func (e *Engine) ConsumeMaterials(ctx context.Context, jobID string, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	return e.transition(ctx, jobID, material.DeltaConsume, reqs)
}

// ReturnMaterials devuelve a bodega el sobrante retirado y no consumido.
func (e *Engine) ReturnMaterials(ctx context.Context, jobID string, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	return e.transition(ctx, jobID, material.DeltaReturn, reqs)
}

// TakePlanned retira en un solo lote el remanente planificado (planificada − retirada)
// de todas las líneas del trabajo. El remanente se deriva bajo el candado del trabajo:
// dos llamadas concurrentes nunca observan el mismo remanente, la segunda ve cero y
// falla como error de validación.
func (e *Engine) TakePlanned(ctx context.Context, jobID string) ([]*entity.MaterialLine, error) {
	job, err := e.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	release, err := e.locks.acquire(ctx, jobID, e.cfg.LockWait)
	if err != nil {
		transitionsTotal.WithLabelValues(string(material.DeltaTake), resultConflict).Inc()
		return nil, err
	}
	defer release()

	lines, err := e.lines.ListByJob(jobID)
	if err != nil {
		return nil, err
	}
	var reqs []MaterialRequest
	for _, line := range lines {
		remaining := line.PlannedQty.Sub(line.TakenQty)
		if remaining.GreaterThan(decimal.Zero) {
			// Sin LotID: la línea conserva su lote almacenado y el movimiento lo toma
			// de la línea preparada.
			reqs = append(reqs, MaterialRequest{ProductID: line.ProductID, Quantity: remaining})
		}
	}
	if len(reqs) == 0 {
		transitionsTotal.WithLabelValues(string(material.DeltaTake), resultRejected).Inc()
		return nil, fmt.Errorf("trabajo %s sin remanente planificado por retirar: %w", jobID, domain.ErrEmptyBatch)
	}
	return e.transitionLocked(ctx, job, material.DeltaTake, reqs)
}

// PreviewTake arma el previo de retiro: por cada línea con remanente planificado,
// consulta el disponible en la ubicación origen y sugiere cuánto retirar.
func (e *Engine) PreviewTake(ctx context.Context, jobID string) ([]TakeSuggestion, error) {
	job, err := e.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	source, err := e.directory.WarehouseLocation(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	lines, err := e.lines.ListByJob(jobID)
	if err != nil {
		return nil, err
	}

	var suggestions []TakeSuggestion
	for _, line := range lines {
		remaining := line.PlannedQty.Sub(line.TakenQty)
		if !remaining.GreaterThan(decimal.Zero) {
			continue
		}
		onHand, err := e.ledger.OnHand(ctx, line.ProductID, source)
		if err != nil {
			return nil, &domain.LedgerFault{ProductID: line.ProductID, Reason: err}
		}
		s := TakeSuggestion{
			ProductID:    line.ProductID,
			PlannedQty:   line.PlannedQty,
			TakenQty:     line.TakenQty,
			RemainingQty: remaining,
			OnHandQty:    onHand,
		}
		switch {
		case !onHand.GreaterThan(decimal.Zero):
			s.Status = TakeStatusNoStock
			s.SuggestedQty = decimal.Zero
		case onHand.LessThan(remaining):
			s.Status = TakeStatusPartial
			s.SuggestedQty = onHand
		default:
			s.Status = TakeStatusOK
			s.SuggestedQty = remaining
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

// GetAggregate recalcula el resumen de materiales del trabajo sobre estado confirmado.
func (e *Engine) GetAggregate(ctx context.Context, jobID string) (material.Aggregate, error) {
	_, agg, err := e.ListWithAggregate(ctx, jobID)
	return agg, err
}

// ListWithAggregate devuelve las líneas del trabajo junto con su resumen, calculado
// sobre la misma lectura.
func (e *Engine) ListWithAggregate(ctx context.Context, jobID string) ([]*entity.MaterialLine, material.Aggregate, error) {
	if _, err := e.getJob(ctx, jobID); err != nil {
		return nil, material.Aggregate{}, err
	}
	lines, err := e.lines.ListByJob(jobID)
	if err != nil {
		return nil, material.Aggregate{}, err
	}
	return lines, material.Recompute(lines), nil
}

// CanComplete puerta de cierre: false mientras el trabajo tenga material retirado sin
// justificar. El registro de trabajos la consulta antes de permitir el estado terminal.
func (e *Engine) CanComplete(ctx context.Context, jobID string) (bool, error) {
	agg, err := e.GetAggregate(ctx, jobID)
	if err != nil {
		return false, err
	}
	return agg.CanComplete(), nil
}

// RefreshPrices re-captura el precio unitario de cada línea desde la fuente de precios.
// Es la única vía de cambio de precio: el snapshot nunca se re-deriva en las lecturas.
func (e *Engine) RefreshPrices(ctx context.Context, jobID string) ([]*entity.MaterialLine, error) {
	if _, err := e.getJob(ctx, jobID); err != nil {
		return nil, err
	}
	release, err := e.locks.acquire(ctx, jobID, e.cfg.LockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated []*entity.MaterialLine
	err = e.txRunner.Run(ctx, func(repo repository.MaterialLineRepository) error {
		lines, err := repo.ListByJob(jobID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			price, uom, err := e.prices.UnitPrice(ctx, line.ProductID)
			if err != nil {
				return err
			}
			locked, err := repo.GetForUpdate(jobID, line.ProductID)
			if err != nil {
				return err
			}
			if locked == nil {
				continue
			}
			locked.UnitPrice = price
			locked.UnitMeasure = uom
			locked.UpdatedAt = time.Now()
			if err := repo.Upsert(locked); err != nil {
				return err
			}
			updated = append(updated, locked)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ── protocolo de transición ───────────────────────────────────────────────────

type route struct {
	from, to string
	movType  string
}

func (e *Engine) transition(ctx context.Context, jobID string, kind material.DeltaKind, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	job, err := e.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	release, err := e.locks.acquire(ctx, jobID, e.cfg.LockWait)
	if err != nil {
		transitionsTotal.WithLabelValues(string(kind), resultConflict).Inc()
		return nil, err
	}
	defer release()

	return e.transitionLocked(ctx, job, kind, reqs)
}

// transitionLocked ejecuta el protocolo del lote. El caller debe sostener el candado
// del trabajo: toda lectura de líneas desde aquí es consistente con el delta a aplicar.
func (e *Engine) transitionLocked(ctx context.Context, job *entity.Job, kind material.DeltaKind, reqs []MaterialRequest) ([]*entity.MaterialLine, error) {
	jobID := job.ID
	if err := validateBatch(reqs); err != nil {
		transitionsTotal.WithLabelValues(string(kind), resultRejected).Inc()
		return nil, err
	}

	// Validación completa del lote antes de cualquier efecto: si una sola línea viola
	// una invariante, ninguna cambia y no se llama al ledger.
	staged, err := e.stageBatch(ctx, jobID, kind, reqs)
	if err != nil {
		transitionsTotal.WithLabelValues(string(kind), resultRejected).Inc()
		return nil, err
	}

	// Movimientos físicos (Add no mueve stock).
	var movementIDs []string
	if kind != material.DeltaAdd {
		rt, err := e.resolveRoute(ctx, job, kind)
		if err != nil {
			transitionsTotal.WithLabelValues(string(kind), resultInternal).Inc()
			return nil, err
		}
		movementIDs, err = e.moveBatch(ctx, job, rt, reqs, staged)
		if err != nil {
			transitionsTotal.WithLabelValues(string(kind), resultLedger).Inc()
			return nil, err
		}
	}

	// Confirmación atómica de los deltas, con bloqueo de fila por línea para que los
	// lectores concurrentes nunca vean un lote a medio aplicar.
	committed := make([]*entity.MaterialLine, 0, len(staged))
	err = e.txRunner.Run(ctx, func(repo repository.MaterialLineRepository) error {
		for i := range staged {
			if _, err := repo.GetForUpdate(jobID, staged[i].ProductID); err != nil {
				return err
			}
			staged[i].UpdatedAt = time.Now()
			if err := repo.Upsert(&staged[i]); err != nil {
				return err
			}
			committed = append(committed, &staged[i])
		}
		return nil
	})
	if err != nil {
		// El stock físico ya se movió pero las cantidades no se confirmaron:
		// revertir para no divergir del ledger.
		if cerr := e.compensate(movementIDs, err); cerr != nil {
			transitionsTotal.WithLabelValues(string(kind), resultInternal).Inc()
			return nil, cerr
		}
		transitionsTotal.WithLabelValues(string(kind), resultInternal).Inc()
		return nil, err
	}

	agg := material.Recompute(committed)
	transitionsTotal.WithLabelValues(string(kind), resultOK).Inc()
	e.log.Info().
		Str("job", jobID).
		Str("kind", string(kind)).
		Int("lines", len(committed)).
		Str("material_total", agg.MaterialTotal.String()).
		Bool("outstanding", agg.HasOutstandingMaterials).
		Msg("lote de materiales confirmado")
	return committed, nil
}

// stageBatch carga (o crea en memoria) cada línea afectada y aplica el delta prospectivo
// a través del guard. No persiste nada.
func (e *Engine) stageBatch(ctx context.Context, jobID string, kind material.DeltaKind, reqs []MaterialRequest) ([]entity.MaterialLine, error) {
	staged := make([]entity.MaterialLine, 0, len(reqs))
	for _, req := range reqs {
		line, err := e.lines.GetByJobAndProduct(jobID, req.ProductID)
		if err != nil {
			return nil, err
		}
		if line == nil {
			switch kind {
			case material.DeltaConsume, material.DeltaReturn:
				return nil, fmt.Errorf("producto %s sin línea de material en el trabajo %s: %w",
					req.ProductID, jobID, domain.ErrNotFound)
			}
			line, err = e.newLine(ctx, jobID, req)
			if err != nil {
				return nil, err
			}
		}
		if kind == material.DeltaTake && req.LotID != "" {
			line.LotID = req.LotID
		}
		next, err := material.ApplyDelta(*line, kind, req.Quantity)
		if err != nil {
			return nil, err
		}
		staged = append(staged, next)
	}
	return staged, nil
}

// resolveRoute determina origen y destino del lote según el tipo de transición.
// Se resuelve una sola vez por lote.
func (e *Engine) resolveRoute(ctx context.Context, job *entity.Job, kind material.DeltaKind) (route, error) {
	resolved, err := e.resolver.Resolve(ctx, job)
	if err != nil {
		return route{}, err
	}
	switch kind {
	case material.DeltaTake:
		warehouse, err := e.directory.WarehouseLocation(ctx, job.ID)
		if err != nil {
			return route{}, err
		}
		return route{from: warehouse, to: resolved.LocationID, movType: entity.MovementIssue}, nil
	case material.DeltaConsume:
		sink, err := e.directory.ConsumptionLocation(ctx)
		if err != nil {
			return route{}, err
		}
		return route{from: resolved.LocationID, to: sink, movType: entity.MovementDelivery}, nil
	case material.DeltaReturn:
		warehouse, err := e.directory.WarehouseLocation(ctx, job.ID)
		if err != nil {
			return route{}, err
		}
		return route{from: resolved.LocationID, to: warehouse, movType: entity.MovementReturn}, nil
	}
	return route{}, domain.ErrInvalidInput
}

// moveBatch pide al ledger un movimiento por línea, cada uno con plazo propio. El lote
// del movimiento sale de la línea preparada (lote efectivo tras aplicar el delta), no de
// la petición cruda. Ante una falla, revierte en orden inverso los ya aplicados y
// devuelve la falla tipada con el producto que la causó; si la reversa también falla,
// reporta la inconsistencia.
func (e *Engine) moveBatch(ctx context.Context, job *entity.Job, rt route, reqs []MaterialRequest, staged []entity.MaterialLine) ([]string, error) {
	origin := movementOrigin(job, rt.movType)
	applied := make([]string, 0, len(reqs))
	for i, req := range reqs {
		mctx, cancel := context.WithTimeout(ctx, e.cfg.LedgerTimeout)
		res, err := e.ledger.MoveStock(mctx, entity.StockMovementRequest{
			FromLocationID: rt.from,
			ToLocationID:   rt.to,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			LotID:          staged[i].LotID,
			JobID:          job.ID,
			Type:           rt.movType,
			Origin:         origin,
		})
		cancel()
		if err != nil {
			fault := &domain.LedgerFault{ProductID: req.ProductID, Reason: err}
			if cerr := e.compensate(applied, fault); cerr != nil {
				return nil, cerr
			}
			return nil, fault
		}
		applied = append(applied, res.MovementID)
	}
	return applied, nil
}

// compensate revierte movimientos ya aplicados, del último al primero. Usa un contexto
// propio: la cancelación del lote no debe impedir la compensación.
func (e *Engine) compensate(movementIDs []string, cause error) error {
	for i := len(movementIDs) - 1; i >= 0; i-- {
		rctx, cancel := context.WithTimeout(context.Background(), e.cfg.LedgerTimeout)
		err := e.ledger.ReverseMovement(rctx, movementIDs[i])
		cancel()
		if err != nil {
			ledgerReversalsTotal.WithLabelValues("failed").Inc()
			e.log.Error().
				Err(err).
				Strs("movements", movementIDs[:i+1]).
				Msg("reversa de compensación fallida: movimientos sin revertir")
			return &domain.InconsistencyError{
				MovementIDs: movementIDs[:i+1],
				Cause:       cause,
				ReversalErr: err,
			}
		}
		ledgerReversalsTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

func (e *Engine) getJob(ctx context.Context, jobID string) (*entity.Job, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidInput
	}
	job, err := e.registry.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("trabajo %s: %w", jobID, domain.ErrNotFound)
	}
	return job, nil
}

// newLine arma una línea nueva con snapshot de precio y unidad desde la fuente de precios.
func (e *Engine) newLine(ctx context.Context, jobID string, req MaterialRequest) (*entity.MaterialLine, error) {
	price, uom, err := e.prices.UnitPrice(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &entity.MaterialLine{
		ID:          uuid.New().String(),
		JobID:       jobID,
		ProductID:   req.ProductID,
		UnitMeasure: uom,
		UnitPrice:   price,
		LotID:       req.LotID,
		PlannedQty:  decimal.Zero,
		TakenQty:    decimal.Zero,
		UsedQty:     decimal.Zero,
		ReturnedQty: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// validateBatch rechaza lotes vacíos y productos repetidos dentro del mismo lote.
// La positividad de cada cantidad la verifica el guard de invariantes.
func validateBatch(reqs []MaterialRequest) error {
	if len(reqs) == 0 {
		return domain.ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if req.ProductID == "" {
			return fmt.Errorf("línea sin producto: %w", domain.ErrInvalidInput)
		}
		if _, dup := seen[req.ProductID]; dup {
			return fmt.Errorf("producto %s: %w", req.ProductID, domain.ErrDuplicateProduct)
		}
		seen[req.ProductID] = struct{}{}
	}
	return nil
}

// movementOrigin etiqueta legible de los documentos de stock, al estilo de las guías
// de bodega: "<trabajo> - <documento> - <responsable>".
func movementOrigin(job *entity.Job, movType string) string {
	responsible := job.Responsible
	if responsible == "" {
		responsible = "desconocido"
	}
	var label string
	switch movType {
	case entity.MovementIssue:
		label = "entrega"
	case entity.MovementDelivery:
		label = "remisión"
	case entity.MovementReturn:
		label = "devolución"
	default:
		label = movType
	}
	name := job.Name
	if name == "" {
		name = job.ID
	}
	return fmt.Sprintf("%s - %s - %s", name, label, responsible)
}
