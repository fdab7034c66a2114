package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha  string `form:"fecha"`              // YYYY-MM-DD; empty = all dates
	Estado string `form:"estado,default=all"` // pendiente | finalizada | fallida | all
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LineaCarrito struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

// CheckoutRequest is the body of POST /v1/ventas. Codigo is the client's
// idempotency key: retrying with the same code never settles twice.
type CheckoutRequest struct {
	Codigo     string          `json:"codigo"      validate:"omitempty,max=64"`
	Lineas     []LineaCarrito  `json:"lineas"      validate:"dive"`
	Descuento  decimal.Decimal `json:"descuento"   validate:"min=0"`
	MetodoPago string          `json:"metodo_pago" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type VentaResponse struct {
	ID             string              `json:"id"`
	Codigo         string              `json:"codigo"`
	Items          []ItemVentaResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Descuento      decimal.Decimal     `json:"descuento"`
	Total          decimal.Decimal     `json:"total"`
	MetodoPago     string              `json:"metodo_pago"`
	Estado         string              `json:"estado"`
	Actor          string              `json:"actor"`
	ImpresionError *string             `json:"impresion_error,omitempty"`
	CreatedAt      string              `json:"created_at"`
}
