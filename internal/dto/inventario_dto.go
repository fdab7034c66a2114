package dto

import "github.com/shopspring/decimal"

// MovimientoFilter is bound from the query string of GET /v1/inventario/movimientos.
type MovimientoFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=entrada salida"`
	Referencia string `form:"referencia"`
	Desde      string `form:"desde"` // RFC3339
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// RegistrarMovimientoRequest is a manual stock adjustment (purchase, breakage,
// tasting...). Sales never go through this request.
type RegistrarMovimientoRequest struct {
	ProductoID     string          `json:"producto_id"     validate:"required,uuid"`
	Tipo           string          `json:"tipo"            validate:"required,oneof=entrada salida"`
	Cantidad       int             `json:"cantidad"        validate:"required,min=1"`
	Motivo         string          `json:"motivo"          validate:"required,oneof=compra devolucion rotura transferencia degustacion ajuste inventario_inicial"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0"`
	Proveedor      *string         `json:"proveedor"       validate:"omitempty,max=120"`
	Nota           *string         `json:"nota"            validate:"omitempty,max=300"`
}

type MovimientoResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Tipo           string          `json:"tipo"`
	Motivo         string          `json:"motivo"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Actor          string          `json:"actor"`
	Estado         string          `json:"estado"`
	Referencia     string          `json:"referencia,omitempty"`
	Proveedor      *string         `json:"proveedor,omitempty"`
	Nota           *string         `json:"nota,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

type MovimientoListResponse struct {
	Data  []MovimientoResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type AlertaStockResponse struct {
	ProductoID  string `json:"producto_id"`
	Nombre      string `json:"nombre"`
	StockActual int    `json:"stock_actual"`
	StockMinimo int    `json:"stock_minimo"`
	Diferencia  int    `json:"diferencia"`
}

// DiscrepanciaResponse reports a product whose cached stock disagrees with
// the sum of its completed movements.
type DiscrepanciaResponse struct {
	ProductoID  string `json:"producto_id"`
	Nombre      string `json:"nombre"`
	StockActual int    `json:"stock_actual"`
	SaldoLedger int    `json:"saldo_ledger"`
	Diferencia  int    `json:"diferencia"`
}

type ConciliacionResponse struct {
	Revisados     int                    `json:"revisados"`
	Discrepancias []DiscrepanciaResponse `json:"discrepancias"`
	EjecutadoEn   string                 `json:"ejecutado_en"`
}
