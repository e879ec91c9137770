package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Palifra/esfsm-stock/internal/application/dto"
)

// VehicleProvisioner aprovisiona la ubicación de stock del vehículo de un recurso
// (cuadrilla o técnico). Idempotente por recurso.
type VehicleProvisioner interface {
	EnsureVehicleLocation(ctx context.Context, resourceID, name string) (string, error)
}

// ResourcesHandler maneja el aprovisionamiento de ubicaciones de recursos.
type ResourcesHandler struct {
	provisioner VehicleProvisioner
}

// NewResourcesHandler construye el handler.
func NewResourcesHandler(provisioner VehicleProvisioner) *ResourcesHandler {
	return &ResourcesHandler{provisioner: provisioner}
}

// ProvisionVehicle crea (si no existe) la ubicación de vehículo del recurso.
// POST /api/resources/:id/vehicle-location
func (h *ResourcesHandler) ProvisionVehicle(c *fiber.Ctx) error {
	var in struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	resourceID := c.Params("id")
	if in.Name == "" {
		in.Name = "Vehículo " + resourceID
	}

	locationID, err := h.provisioner.EnsureVehicleLocation(c.Context(), resourceID, in.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"location_id": locationID})
}
