package repository

import (
	"context"
	"time"

	"barpos/internal/dto"
	"barpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComandaRepository persists tabs and their items. Writes to the tab row are
// guarded by estado = abierta and the caller's Version.
type ComandaRepository interface {
	Create(ctx context.Context, c *model.Comanda) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Comanda, error)
	FindAbiertaPorMesa(ctx context.Context, mesaID uuid.UUID) (*model.Comanda, error)
	List(ctx context.Context, filter dto.ComandaFilter) ([]model.Comanda, error)

	AddItem(ctx context.Context, it *model.ComandaItem) error
	DeleteItem(ctx context.Context, comandaID, itemID uuid.UUID) error

	// UpdateTotales writes subtotal, descuento and total and bumps Version.
	UpdateTotales(ctx context.Context, c *model.Comanda) error
	Cerrar(ctx context.Context, c *model.Comanda, metodoPago string, clave *string, at time.Time) error
	Cancelar(ctx context.Context, c *model.Comanda, at time.Time) error
}

type comandaRepo struct{ db *gorm.DB }

func NewComandaRepository(db *gorm.DB) ComandaRepository { return &comandaRepo{db: db} }

func (r *comandaRepo) Create(ctx context.Context, c *model.Comanda) error {
	return translate(r.db.WithContext(ctx).Omit("Items").Create(c).Error)
}

func (r *comandaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Comanda, error) {
	var c model.Comanda
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *comandaRepo) FindAbiertaPorMesa(ctx context.Context, mesaID uuid.UUID) (*model.Comanda, error) {
	var c model.Comanda
	err := r.db.WithContext(ctx).Preload("Items").
		Where("mesa_id = ? AND estado = ?", mesaID, model.ComandaAbierta).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *comandaRepo) List(ctx context.Context, filter dto.ComandaFilter) ([]model.Comanda, error) {
	var comandas []model.Comanda
	q := r.db.WithContext(ctx).Model(&model.Comanda{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.MesaID != "" {
		q = q.Where("mesa_id = ?", filter.MesaID)
	}
	err := q.Preload("Items").Order("abierta_en DESC").Find(&comandas).Error
	return comandas, err
}

func (r *comandaRepo) AddItem(ctx context.Context, it *model.ComandaItem) error {
	return translate(r.db.WithContext(ctx).Create(it).Error)
}

func (r *comandaRepo) DeleteItem(ctx context.Context, comandaID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND comanda_id = ?", itemID, comandaID).Delete(&model.ComandaItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// guarded runs a conditional update on an open tab at the caller's version.
func (r *comandaRepo) guarded(ctx context.Context, c *model.Comanda, values map[string]any) error {
	values["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).Model(&model.Comanda{}).
		Where("id = ? AND estado = ? AND version = ?", c.ID, model.ComandaAbierta, c.Version).
		Updates(values)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		cur, err := r.FindByID(ctx, c.ID)
		if err != nil {
			return err
		}
		if cur.Estado != model.ComandaAbierta {
			return ErrTransicion
		}
		return ErrVersion
	}
	c.Version++
	return nil
}

func (r *comandaRepo) UpdateTotales(ctx context.Context, c *model.Comanda) error {
	return r.guarded(ctx, c, map[string]any{
		"subtotal":  c.Subtotal,
		"descuento": c.Descuento,
		"total":     c.Total,
	})
}

func (r *comandaRepo) Cerrar(ctx context.Context, c *model.Comanda, metodoPago string, clave *string, at time.Time) error {
	if err := r.guarded(ctx, c, map[string]any{
		"estado":       model.ComandaCerrada,
		"metodo_pago":  metodoPago,
		"clave_cierre": clave,
		"cerrada_en":   at,
	}); err != nil {
		return err
	}
	c.Estado = model.ComandaCerrada
	c.MetodoPago = &metodoPago
	c.ClaveCierre = clave
	c.CerradaEn = &at
	return nil
}

func (r *comandaRepo) Cancelar(ctx context.Context, c *model.Comanda, at time.Time) error {
	if err := r.guarded(ctx, c, map[string]any{
		"estado":     model.ComandaCancelada,
		"cerrada_en": at,
	}); err != nil {
		return err
	}
	c.Estado = model.ComandaCancelada
	c.CerradaEn = &at
	return nil
}
