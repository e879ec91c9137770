package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Palifra/esfsm-stock/internal/application/dto"
	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
)

type batchOp func(ctx context.Context, jobID string, reqs []materials.MaterialRequest) ([]*entity.MaterialLine, error)

// MaterialsHandler maneja las peticiones HTTP del ciclo de materiales de un trabajo.
type MaterialsHandler struct {
	engine *materials.Engine
}

// NewMaterialsHandler construye el handler.
func NewMaterialsHandler(engine *materials.Engine) *MaterialsHandler {
	return &MaterialsHandler{engine: engine}
}

// Add registra un lote de planificación (no mueve stock).
// POST /api/jobs/:id/materials
func (h *MaterialsHandler) Add(c *fiber.Ctx) error {
	return h.runBatch(c, h.engine.AddMaterials)
}

// Take registra un lote de retiro bodega → recurso.
// POST /api/jobs/:id/materials/take
func (h *MaterialsHandler) Take(c *fiber.Ctx) error {
	return h.runBatch(c, h.engine.TakeMaterials)
}

// Consume registra un lote de consumo sobre el trabajo.
// POST /api/jobs/:id/materials/consume
func (h *MaterialsHandler) Consume(c *fiber.Ctx) error {
	return h.runBatch(c, h.engine.ConsumeMaterials)
}

// Return registra un lote de devolución a bodega.
// POST /api/jobs/:id/materials/return
func (h *MaterialsHandler) Return(c *fiber.Ctx) error {
	return h.runBatch(c, h.engine.ReturnMaterials)
}

// runBatch parsea el cuerpo común de los endpoints de transición y delega en la operación.
func (h *MaterialsHandler) runBatch(c *fiber.Ctx, op batchOp) error {
	var in dto.MaterialBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lines, err := op(c.Context(), c.Params("id"), in.ToRequests())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"materials": dto.MaterialLinesFromEntities(lines)})
}

// TakePlanned retira el remanente planificado completo del trabajo.
// POST /api/jobs/:id/materials/take-planned
func (h *MaterialsHandler) TakePlanned(c *fiber.Ctx) error {
	lines, err := h.engine.TakePlanned(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"materials": dto.MaterialLinesFromEntities(lines)})
}

// List devuelve las líneas del trabajo con su resumen.
// GET /api/jobs/:id/materials
func (h *MaterialsHandler) List(c *fiber.Ctx) error {
	jobID := c.Params("id")
	lines, agg, err := h.engine.ListWithAggregate(c.Context(), jobID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"materials": dto.MaterialLinesFromEntities(lines),
		"summary":   dto.AggregateFromDomain(agg),
	})
}

// TakePreview devuelve el previo de retiro con disponibilidad por línea.
// GET /api/jobs/:id/materials/take-preview
func (h *MaterialsHandler) TakePreview(c *fiber.Ctx) error {
	suggestions, err := h.engine.PreviewTake(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": dto.TakeSuggestionsFromEngine(suggestions)})
}

// CanComplete indica si el trabajo puede pasar a estado terminal.
// GET /api/jobs/:id/can-complete
func (h *MaterialsHandler) CanComplete(c *fiber.Ctx) error {
	ok, err := h.engine.CanComplete(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"can_complete": ok})
}

// RefreshPrices re-captura los precios unitarios de las líneas del trabajo.
// POST /api/jobs/:id/materials/refresh-prices
func (h *MaterialsHandler) RefreshPrices(c *fiber.Ctx) error {
	lines, err := h.engine.RefreshPrices(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"materials": dto.MaterialLinesFromEntities(lines)})
}

// writeError traduce los errores de dominio a estados HTTP. Los tipados (invariantes,
// fallas de ledger) conservan su detalle en el mensaje.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyBatch):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "EMPTY_BATCH", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateProduct):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "DUPLICATE_PRODUCT", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvariantViolated):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVARIANT", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENCY", Message: err.Error()})
	case errors.Is(err, domain.ErrLocationNotConfigured):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "LOCATION_NOT_CONFIGURED", Message: err.Error()})
	case errors.Is(err, domain.ErrInconsistentState):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INCONSISTENT_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrLedgerUnavailable), isLedgerFault(err):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "LEDGER", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func isLedgerFault(err error) bool {
	var fault *domain.LedgerFault
	return errors.As(err, &fault)
}
