package repository

import (
	"context"
	"time"

	"barpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	ProductoID *uuid.UUID
	Tipo       string
	Referencia string
	Desde      *time.Time
	Page       int
	Limit      int
}

// MovimientoStockRepository is the append-only ledger. Settlement writes a
// movement as pendiente first and then moves it with Aplicar or Anular; both
// touch the movement row and the product's stock in one transaction keyed on
// the movement, so either can be repeated after an unknown outcome.
type MovimientoStockRepository interface {
	Create(ctx context.Context, m *model.MovimientoStock) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MovimientoStock, error)
	List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
	// Aplicar applies a pendiente movement to stock and marks it completado.
	// A movement in any other state is returned unchanged without touching
	// stock. On ErrStockInsuficiente the returned product carries the stock
	// seen by the failed attempt and the movement stays pendiente.
	Aplicar(ctx context.Context, id uuid.UUID) (*model.MovimientoStock, *model.Producto, error)
	// Anular cancels a movement. A completado one has its stock effect
	// undone; a pendiente one only changes state. Anulling twice is a no-op.
	Anular(ctx context.Context, id uuid.UUID) error
	// SaldoCompletado returns sum(entradas) - sum(salidas) over completed rows.
	SaldoCompletado(ctx context.Context, productoID uuid.UUID) (int, error)
}

type movimientoStockRepo struct{ db *gorm.DB }

func NewMovimientoStockRepository(db *gorm.DB) MovimientoStockRepository {
	return &movimientoStockRepo{db: db}
}

func (r *movimientoStockRepo) Create(ctx context.Context, m *model.MovimientoStock) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *movimientoStockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MovimientoStock, error) {
	var m model.MovimientoStock
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *movimientoStockRepo) List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var movs []model.MovimientoStock
	var total int64

	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if filter.Referencia != "" {
		q = q.Where("referencia = ?", filter.Referencia)
	}
	if filter.Desde != nil {
		q = q.Where("created_at >= ?", *filter.Desde)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}
	err := q.Order("created_at ASC").Find(&movs).Error
	return movs, total, err
}

func (r *movimientoStockRepo) Aplicar(ctx context.Context, id uuid.UUID) (*model.MovimientoStock, *model.Producto, error) {
	var m model.MovimientoStock
	var visto *model.Producto
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MovimientoStock{}).
			Where("id = ? AND estado = ?", id, model.MovimientoPendiente).
			Update("estado", model.MovimientoCompletado)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			return translate(err)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if m.Tipo == model.MovimientoEntrada {
			return incrementarStock(tx, m.ProductoID, m.Cantidad)
		}
		p, err := descontarStock(tx, m.ProductoID, m.Cantidad)
		visto = p
		return err
	})
	if err != nil {
		return nil, visto, err
	}
	return &m, nil, nil
}

func (r *movimientoStockRepo) Anular(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MovimientoStock{}).
			Where("id = ? AND estado = ?", id, model.MovimientoCompletado).
			Update("estado", model.MovimientoAnulado)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			var m model.MovimientoStock
			if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
				return translate(err)
			}
			if m.Tipo == model.MovimientoSalida {
				return incrementarStock(tx, m.ProductoID, m.Cantidad)
			}
			_, err := descontarStock(tx, m.ProductoID, m.Cantidad)
			return err
		}

		res = tx.Model(&model.MovimientoStock{}).
			Where("id = ? AND estado = ?", id, model.MovimientoPendiente).
			Update("estado", model.MovimientoAnulado)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}

		var m model.MovimientoStock
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			return translate(err)
		}
		if m.Estado != model.MovimientoAnulado {
			// an Aplicar committed between the two updates
			return ErrMovimientoEnCurso
		}
		return nil
	})
}

func (r *movimientoStockRepo) SaldoCompletado(ctx context.Context, productoID uuid.UUID) (int, error) {
	var saldo int64
	err := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Select("COALESCE(SUM(CASE WHEN tipo = ? THEN cantidad ELSE -cantidad END), 0)", model.MovimientoEntrada).
		Where("producto_id = ? AND estado = ?", productoID, model.MovimientoCompletado).
		Scan(&saldo).Error
	return int(saldo), err
}
