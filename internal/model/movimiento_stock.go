package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TipoMovimiento string

const (
	MovimientoEntrada TipoMovimiento = "entrada"
	MovimientoSalida  TipoMovimiento = "salida"
)

type EstadoMovimiento string

const (
	MovimientoPendiente  EstadoMovimiento = "pendiente"
	MovimientoCompletado EstadoMovimiento = "completado"
	MovimientoAnulado    EstadoMovimiento = "anulado"
)

// Motivos de movimiento. Settlement always writes MotivoVenta; the rest come
// from manual adjustments.
const (
	MotivoVenta             = "venta"
	MotivoCompra            = "compra"
	MotivoDevolucion        = "devolucion"
	MotivoRotura            = "rotura"
	MotivoTransferencia     = "transferencia"
	MotivoDegustacion       = "degustacion"
	MotivoAjuste            = "ajuste"
	MotivoInventarioInicial = "inventario_inicial"
)

var motivosValidos = map[string]bool{
	MotivoVenta: true, MotivoCompra: true, MotivoDevolucion: true, MotivoRotura: true,
	MotivoTransferencia: true, MotivoDegustacion: true, MotivoAjuste: true,
	MotivoInventarioInicial: true,
}

func MotivoValido(m string) bool { return motivosValidos[m] }

// MovimientoStock is one append-only ledger entry. Cantidad is always positive;
// Tipo carries the direction. Only Estado ever changes: pendiente to
// completado when the stock moves, or to anulado when settlement is undone.
// Only completado rows count towards stock.
type MovimientoStock struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductoID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Tipo           TipoMovimiento   `gorm:"type:varchar(10);not null"`
	Motivo         string           `gorm:"type:varchar(30);not null"`
	Cantidad       int              `gorm:"not null"`
	PrecioUnitario decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Actor          string           `gorm:"not null"`
	Estado         EstadoMovimiento `gorm:"type:varchar(12);not null;index"`
	// Referencia holds the sale or tab code that produced the movement.
	Referencia string `gorm:"index"`
	Proveedor  *string
	Nota       *string
	CreatedAt  time.Time `gorm:"index"`
}

func (MovimientoStock) TableName() string { return "movimientos_stock" }

func (m *MovimientoStock) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Delta is the signed effect of the movement on StockActual.
func (m *MovimientoStock) Delta() int {
	if m.Tipo == MovimientoSalida {
		return -m.Cantidad
	}
	return m.Cantidad
}

// NewMovimiento builds a pendiente movement with a pre-assigned ID, so that a
// retried insert of the same value can be recognised as a duplicate.
func NewMovimiento(productoID uuid.UUID, tipo TipoMovimiento, cantidad int, motivo, actor string, precio decimal.Decimal, referencia string) (*MovimientoStock, error) {
	if productoID == uuid.Nil {
		return nil, invalido("producto requerido")
	}
	if tipo != MovimientoEntrada && tipo != MovimientoSalida {
		return nil, invalido("tipo de movimiento %q desconocido", tipo)
	}
	if cantidad <= 0 {
		return nil, invalido("la cantidad debe ser mayor a cero")
	}
	if !MotivoValido(motivo) {
		return nil, invalido("motivo %q desconocido", motivo)
	}
	if strings.TrimSpace(actor) == "" {
		return nil, invalido("actor requerido")
	}
	if precio.IsNegative() {
		return nil, invalido("el precio unitario no puede ser negativo")
	}
	return &MovimientoStock{
		ID:             uuid.New(),
		ProductoID:     productoID,
		Tipo:           tipo,
		Motivo:         motivo,
		Cantidad:       cantidad,
		PrecioUnitario: precio,
		Actor:          actor,
		Estado:         MovimientoPendiente,
		Referencia:     referencia,
		CreatedAt:      time.Now(),
	}, nil
}
