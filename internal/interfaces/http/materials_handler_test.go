package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
	"github.com/Palifra/esfsm-stock/internal/domain/entity"
	"github.com/Palifra/esfsm-stock/internal/infrastructure/memory"
	apphttp "github.com/Palifra/esfsm-stock/internal/interfaces/http"
	"github.com/Palifra/esfsm-stock/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJobID = "job-1"
)

// buildTestApp construye una aplicación Fiber con el motor sobre adaptadores en memoria.
func buildTestApp(t *testing.T) (*fiber.App, *memory.Ledger) {
	t.Helper()

	store := memory.NewLineStore()
	ledger := memory.NewLedger()
	dir := memory.NewDirectory("loc-consumo")
	registry := memory.NewRegistry()
	prices := memory.NewPrices()

	registry.PutJob(entity.Job{
		ID:           testJobID,
		Name:         "FS0001",
		WarehouseID:  "wh-1",
		TechnicianID: "tech-1",
		Responsible:  "Marko Ilievski",
	})
	dir.SetWarehouseLocation(testJobID, "loc-bodega")
	dir.SetVehicleLocation("tech-1", "loc-vehiculo")
	prices.SetPrice("prod-a", decimal.RequireFromString("10"), "unidad")
	ledger.SetOnHand("prod-a", "loc-bodega", decimal.RequireFromString("50"))

	engine := materials.NewEngine(
		materials.Config{LockWait: 200 * time.Millisecond, LedgerTimeout: 200 * time.Millisecond},
		store, store, dir, ledger, registry, prices, logger.Nop(),
	)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Engine: engine})
	return app, ledger
}

// doJSON lanza una petición con cuerpo JSON y devuelve la respuesta.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func batch(product, qty string) map[string]any {
	return map[string]any{
		"materials": []map[string]any{
			{"product_id": product, "quantity": qty},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Endpoints de transición
// ──────────────────────────────────────────────────────────────────────────────

func TestAdd_PlanificaMateriales(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials", batch("prod-a", "5"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	mats := body["materials"].([]any)
	require.Len(t, mats, 1)
	line := mats[0].(map[string]any)
	assert.Equal(t, "prod-a", line["product_id"])
	assert.Equal(t, "planned", line["state"])
}

func TestTake_RetiraYReportaEstado(t *testing.T) {
	app, ledger := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/take", batch("prod-a", "4"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	line := body["materials"].([]any)[0].(map[string]any)
	assert.Equal(t, "taken", line["state"])
	assert.Len(t, ledger.Movements(), 1)
}

func TestAdd_CuerpoInvalido(t *testing.T) {
	app, _ := buildTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/job-1/materials", bytes.NewReader([]byte("no-json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestAdd_LoteVacio(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials", map[string]any{"materials": []any{}})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "EMPTY_BATCH", body["code"])
}

func TestConsume_SinLineaEs404(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/consume", batch("prod-a", "2"))

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestConsume_ViolacionDeInvarianteEs409(t *testing.T) {
	app, _ := buildTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/take", batch("prod-a", "2"))

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/consume", batch("prod-a", "5"))

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INVARIANT", body["code"])
}

func TestTake_TrabajoInexistenteEs404(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/jobs/job-x/materials/take", batch("prod-a", "1"))

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

func TestList_DevuelveLineasYResumen(t *testing.T) {
	app, _ := buildTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/take", batch("prod-a", "4"))
	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/consume", batch("prod-a", "4"))

	resp := doJSON(t, app, http.MethodGet, "/api/jobs/job-1/materials/", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Len(t, body["materials"].([]any), 1)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["material_count"])
	assert.Equal(t, false, summary["has_outstanding_materials"])
}

func TestCanComplete_BloqueaConMaterialPendiente(t *testing.T) {
	app, _ := buildTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/take", batch("prod-a", "4"))

	resp := doJSON(t, app, http.MethodGet, "/api/jobs/job-1/can-complete", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["can_complete"])

	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials/return", batch("prod-a", "4"))

	resp = doJSON(t, app, http.MethodGet, "/api/jobs/job-1/can-complete", nil)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["can_complete"])
}

func TestTakePreview_SugiereSegunDisponibilidad(t *testing.T) {
	app, _ := buildTestApp(t)
	doJSON(t, app, http.MethodPost, "/api/jobs/job-1/materials", batch("prod-a", "5"))

	resp := doJSON(t, app, http.MethodGet, "/api/jobs/job-1/materials/take-preview", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 1)
	s := suggestions[0].(map[string]any)
	assert.Equal(t, "ok", s["status"])
	assert.Equal(t, "5", s["suggested_qty"])
}
