package dto

type CrearMesaRequest struct {
	Numero    int    `json:"numero"    validate:"required,min=1"`
	Etiqueta  string `json:"etiqueta"  validate:"omitempty,max=60"`
	Capacidad int    `json:"capacidad" validate:"required,min=1,max=50"`
}

// CambiarEstadoMesaRequest is the administrative state change. ocupada is
// not accepted here: only tabs occupy tables.
type CambiarEstadoMesaRequest struct {
	Estado string `json:"estado" validate:"required,oneof=libre reservada mantenimiento"`
}

type MesaResponse struct {
	ID        string `json:"id"`
	Numero    int    `json:"numero"`
	Etiqueta  string `json:"etiqueta"`
	Capacidad int    `json:"capacidad"`
	Estado    string `json:"estado"`
}
