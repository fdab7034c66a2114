package repository

import (
	"context"

	"barpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MesaRepository interface {
	Create(ctx context.Context, m *model.Mesa) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Mesa, error)
	List(ctx context.Context) ([]model.Mesa, error)
	// Transicion moves the table to hasta only if its current state is one of
	// desde. It is the sole way table state changes.
	Transicion(ctx context.Context, id uuid.UUID, hasta model.EstadoMesa, desde ...model.EstadoMesa) error
}

type mesaRepo struct{ db *gorm.DB }

func NewMesaRepository(db *gorm.DB) MesaRepository { return &mesaRepo{db: db} }

func (r *mesaRepo) Create(ctx context.Context, m *model.Mesa) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *mesaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Mesa, error) {
	var m model.Mesa
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *mesaRepo) List(ctx context.Context) ([]model.Mesa, error) {
	var mesas []model.Mesa
	err := r.db.WithContext(ctx).Where("activo = ?", true).Order("numero ASC").Find(&mesas).Error
	return mesas, err
}

func (r *mesaRepo) Transicion(ctx context.Context, id uuid.UUID, hasta model.EstadoMesa, desde ...model.EstadoMesa) error {
	res := r.db.WithContext(ctx).Model(&model.Mesa{}).
		Where("id = ? AND activo = ? AND estado IN ?", id, true, desde).
		Update("estado", hasta)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrTransicion
	}
	return nil
}
