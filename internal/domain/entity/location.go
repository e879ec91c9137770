package entity

// SourceKind identifica qué rama de la cadena de prioridad resolvió la ubicación.
type SourceKind string

const (
	SourceTeamVehicle       SourceKind = "team_vehicle"
	SourceTechnicianVehicle SourceKind = "technician_vehicle"
	SourceWarehouse         SourceKind = "warehouse"
)

// ResolvedLocation ubicación de recurso resuelta para un trabajo (valor transitorio,
// recalculado en cada transición, nunca persistido).
type ResolvedLocation struct {
	LocationID string
	Kind       SourceKind
}
