package entity

// Job contexto de un trabajo de terreno. La identidad, estado y asignación pertenecen
// al registro de trabajos externo; el núcleo de materiales solo lo lee.
type Job struct {
	ID           string
	Name         string // referencia legible, ej. "OT-2024-0031"
	WarehouseID  string
	TeamID       string // vacío si el trabajo no está asignado a una cuadrilla
	TechnicianID string // vacío si no hay técnico asignado
	Responsible  string // nombre del responsable de materiales, para trazabilidad
}
