package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EstadoMesa string

const (
	MesaLibre         EstadoMesa = "libre"
	MesaOcupada       EstadoMesa = "ocupada"
	MesaReservada     EstadoMesa = "reservada"
	MesaMantenimiento EstadoMesa = "mantenimiento"
)

func (e EstadoMesa) Valido() bool {
	switch e {
	case MesaLibre, MesaOcupada, MesaReservada, MesaMantenimiento:
		return true
	}
	return false
}

// Mesa is a physical table. Estado ocupada is only ever set by opening a tab
// and cleared by closing or cancelling it.
type Mesa struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Numero    int       `gorm:"uniqueIndex;not null"`
	Etiqueta  string
	Capacidad int        `gorm:"not null"`
	Estado    EstadoMesa `gorm:"type:varchar(20);not null;index"`
	Activo    bool       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Mesa) TableName() string { return "mesas" }

func (m *Mesa) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Estado == "" {
		m.Estado = MesaLibre
	}
	return nil
}
