package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EstadoVenta string

const (
	VentaPendiente  EstadoVenta = "pendiente"
	VentaFinalizada EstadoVenta = "finalizada"
	VentaFallida    EstadoVenta = "fallida"
)

// Venta is a counter sale. It is inserted as pendiente before stock is touched
// and moves to finalizada or fallida exactly once.
type Venta struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Codigo         string          `gorm:"uniqueIndex;not null"`
	Actor          string          `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago     string          `gorm:"type:varchar(20);not null"`
	Estado         EstadoVenta     `gorm:"type:varchar(12);not null;index"`
	MotivoFallo    *string
	ImpresionError *string
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

func (Venta) TableName() string { return "ventas" }

func (v *Venta) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Nombre         string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (VentaItem) TableName() string { return "venta_items" }

func (i *VentaItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func NewVentaItem(p *Producto, cantidad int) (*VentaItem, error) {
	if cantidad <= 0 {
		return nil, invalido("la cantidad debe ser mayor a cero")
	}
	if p.PrecioVenta.IsNegative() {
		return nil, invalido("precio de venta negativo para %s", p.Nombre)
	}
	return &VentaItem{
		ID:             uuid.New(),
		ProductoID:     p.ID,
		Nombre:         p.Nombre,
		Cantidad:       cantidad,
		PrecioUnitario: p.PrecioVenta,
		Subtotal:       p.PrecioVenta.Mul(decimal.NewFromInt(int64(cantidad))),
	}, nil
}
