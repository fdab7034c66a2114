package dto

import "github.com/shopspring/decimal"

// ReciboPayload is the job payload handed to the receipt printer worker.
type ReciboPayload struct {
	Tipo       string          `json:"tipo"` // venta | comanda
	Codigo     string          `json:"codigo"`
	Items      []ReciboItem    `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Descuento  decimal.Decimal `json:"descuento"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
	Actor      string          `json:"actor"`
	Fecha      string          `json:"fecha"`
}

type ReciboItem struct {
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}
