package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EstadoComanda string

const (
	ComandaAbierta   EstadoComanda = "abierta"
	ComandaCerrada   EstadoComanda = "cerrada"
	ComandaCancelada EstadoComanda = "cancelada"
)

// Comanda is an open tab attached to a table. Items can be added or removed
// while the tab is abierta; once cerrada or cancelada it is frozen.
//
// Version is bumped on every write and used as an optimistic guard next to
// the per-tab lock.
type Comanda struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Codigo      string    `gorm:"uniqueIndex;not null"`
	MesaID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Cliente     *string
	Actor       string          `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago  *string
	Estado      EstadoComanda `gorm:"type:varchar(12);not null;index"`
	Version     int           `gorm:"not null"`
	ClaveCierre *string
	AbiertaEn   time.Time `gorm:"not null"`
	CerradaEn   *time.Time
	UpdatedAt   time.Time

	Items []ComandaItem `gorm:"foreignKey:ComandaID"`
}

func (Comanda) TableName() string { return "comandas" }

func (c *Comanda) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Recalcular rebuilds Subtotal from the items and clamps Total at zero.
func (c *Comanda) Recalcular() {
	sub := decimal.Zero
	for _, it := range c.Items {
		sub = sub.Add(it.Subtotal)
	}
	c.Subtotal = sub
	c.Total = decimal.Max(decimal.Zero, sub.Sub(c.Descuento))
}

// ComandaItem is one line of a tab. PrecioUnitario is copied from the product
// when the line is added and does not follow later price changes.
type ComandaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ComandaID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Nombre         string          `gorm:"not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Descuento      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Nota           *string
	CreatedAt      time.Time
}

func (ComandaItem) TableName() string { return "comanda_items" }

func (i *ComandaItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NewComandaItem validates the line and computes
// subtotal = cantidad * precio - descuento.
func NewComandaItem(comandaID uuid.UUID, p *Producto, cantidad int, descuento decimal.Decimal, nota *string) (*ComandaItem, error) {
	if cantidad <= 0 {
		return nil, invalido("la cantidad debe ser mayor a cero")
	}
	if descuento.IsNegative() {
		return nil, invalido("el descuento no puede ser negativo")
	}
	bruto := p.PrecioVenta.Mul(decimal.NewFromInt(int64(cantidad)))
	if descuento.GreaterThan(bruto) {
		return nil, invalido("el descuento de linea supera el importe de la linea")
	}
	return &ComandaItem{
		ID:             uuid.New(),
		ComandaID:      comandaID,
		ProductoID:     p.ID,
		Nombre:         p.Nombre,
		Cantidad:       cantidad,
		PrecioUnitario: p.PrecioVenta,
		Descuento:      descuento,
		Subtotal:       bruto.Sub(descuento),
		Nota:           nota,
		CreatedAt:      time.Now(),
	}, nil
}
