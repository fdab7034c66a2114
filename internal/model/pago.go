package model

const (
	PagoEfectivo      = "efectivo"
	PagoDebito        = "debito"
	PagoCredito       = "credito"
	PagoTransferencia = "transferencia"
	PagoPix           = "pix"
	PagoQR            = "qr"
)

var metodosPago = map[string]bool{
	PagoEfectivo: true, PagoDebito: true, PagoCredito: true,
	PagoTransferencia: true, PagoPix: true, PagoQR: true,
}

func MetodoPagoValido(m string) bool { return metodosPago[m] }
