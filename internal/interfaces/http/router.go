package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Palifra/esfsm-stock/internal/application/materials"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *materials.Engine
	Provisioner VehicleProvisioner // opcional; sin él no se expone el aprovisionamiento
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	handler := NewMaterialsHandler(deps.Engine)

	if deps.Provisioner != nil {
		resources := NewResourcesHandler(deps.Provisioner)
		api.Post("/resources/:id/vehicle-location", resources.ProvisionVehicle)
	}

	jobs := api.Group("/jobs/:id")
	jobs.Get("/can-complete", handler.CanComplete)

	mats := jobs.Group("/materials")
	mats.Get("/", handler.List)
	mats.Post("/", handler.Add)
	mats.Post("/take", handler.Take)
	mats.Post("/take-planned", handler.TakePlanned)
	mats.Get("/take-preview", handler.TakePreview)
	mats.Post("/consume", handler.Consume)
	mats.Post("/return", handler.Return)
	mats.Post("/refresh-prices", handler.RefreshPrices)
}
