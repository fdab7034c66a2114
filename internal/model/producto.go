package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Producto is a sellable catalog item. StockActual is a cached projection of
// the completed movimientos_stock rows for the product; the settlement engine
// only touches it through conditional updates.
type Producto struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CodigoBarras string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"index;not null"`
	Descripcion  *string
	Categoria    string          `gorm:"not null;default:'general'"`
	PrecioCosto  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockActual  int             `gorm:"not null"`
	StockMinimo  int             `gorm:"not null"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	// no default tag: gorm would turn an explicit false into true on insert
	Activo    bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Producto) TableName() string { return "productos" }

func (p *Producto) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BajoMinimo reports whether the product should show up in stock alerts.
func (p *Producto) BajoMinimo() bool { return p.StockActual <= p.StockMinimo }
