package dto

import "github.com/shopspring/decimal"

type ComandaFilter struct {
	Estado string `form:"estado"`
	MesaID string `form:"mesa_id"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirComandaRequest struct {
	MesaID  string  `json:"mesa_id" validate:"required,uuid"`
	Cliente *string `json:"cliente" validate:"omitempty,max=120"`
	Codigo  string  `json:"codigo"  validate:"omitempty,max=64"`
}

type AgregarItemRequest struct {
	ProductoID string          `json:"producto_id" validate:"required,uuid"`
	Cantidad   int             `json:"cantidad"    validate:"required,min=1"`
	Descuento  decimal.Decimal `json:"descuento"   validate:"min=0"`
	Nota       *string         `json:"nota"        validate:"omitempty,max=200"`
}

type DescuentoRequest struct {
	Monto decimal.Decimal `json:"monto" validate:"min=0"`
}

// CerrarComandaRequest closes and settles a tab. Clave makes the close
// idempotent: repeating it with the same key returns the closed tab.
type CerrarComandaRequest struct {
	MetodoPago string `json:"metodo_pago" validate:"required"`
	Clave      string `json:"clave"       validate:"omitempty,max=64"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComandaItemResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Descuento      decimal.Decimal `json:"descuento"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Nota           *string         `json:"nota,omitempty"`
}

type ComandaResponse struct {
	ID             string                `json:"id"`
	Codigo         string                `json:"codigo"`
	MesaID         string                `json:"mesa_id"`
	Cliente        *string               `json:"cliente,omitempty"`
	Items          []ComandaItemResponse `json:"items"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	Descuento      decimal.Decimal       `json:"descuento"`
	Total          decimal.Decimal       `json:"total"`
	MetodoPago     *string               `json:"metodo_pago,omitempty"`
	Estado         string                `json:"estado"`
	Version        int                   `json:"version"`
	AbiertaEn      string                `json:"abierta_en"`
	CerradaEn      *string               `json:"cerrada_en,omitempty"`
	ImpresionError *string               `json:"impresion_error,omitempty"`
}
