package repository

import (
	"context"

	"barpos/internal/dto"
	"barpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	// Create inserts the sale together with its items.
	Create(ctx context.Context, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Venta, error)
	// Transicion moves a sale from desde to hasta; motivo is stored as MotivoFallo.
	Transicion(ctx context.Context, id uuid.UUID, desde, hasta model.EstadoVenta, motivo *string) error
	SetImpresionError(ctx context.Context, id uuid.UUID, msg string) error
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *ventaRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Venta, error) {
	var v model.Venta
	if err := r.db.WithContext(ctx).Preload("Items").Where("codigo = ?", codigo).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *ventaRepo) Transicion(ctx context.Context, id uuid.UUID, desde, hasta model.EstadoVenta, motivo *string) error {
	res := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ? AND estado = ?", id, desde).
		Updates(map[string]any{"estado": hasta, "motivo_fallo": motivo})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		v, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if v.Estado == hasta {
			return nil
		}
		return ErrTransicion
	}
	return nil
}

func (r *ventaRepo) SetImpresionError(ctx context.Context, id uuid.UUID, msg string) error {
	return r.db.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", id).Update("impresion_error", msg).Error
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(created_at) = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
