package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"barpos/internal/dto"
	"barpos/internal/lock"
	"barpos/internal/model"
	"barpos/internal/repository"
	"barpos/internal/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ComandaService manages tabs. Every mutating call runs under the tab's
// keyed lock and writes with an optimistic version check.
type ComandaService interface {
	Abrir(ctx context.Context, actor string, req dto.AbrirComandaRequest) (*dto.ComandaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ComandaResponse, error)
	Listar(ctx context.Context, filter dto.ComandaFilter) ([]dto.ComandaResponse, error)
	AgregarItem(ctx context.Context, id uuid.UUID, req dto.AgregarItemRequest) (*dto.ComandaResponse, error)
	AnularItem(ctx context.Context, id, itemID uuid.UUID) (*dto.ComandaResponse, error)
	AplicarDescuento(ctx context.Context, id uuid.UUID, monto decimal.Decimal) (*dto.ComandaResponse, error)
	// Cerrar settles the tab: stock, ledger, tab state, table, receipt.
	Cerrar(ctx context.Context, actor string, id uuid.UUID, req dto.CerrarComandaRequest) (*dto.ComandaResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID) (*dto.ComandaResponse, error)
}

type comandaService struct {
	comandas  repository.ComandaRepository
	productos repository.ProductoRepository
	mesas     MesaService
	locker    lock.Locker
	impresora Impresora
	liq       *liquidador
	opts      Opciones
}

func NewComandaService(
	comandas repository.ComandaRepository,
	productos repository.ProductoRepository,
	movimientos repository.MovimientoStockRepository,
	mesas MesaService,
	locker lock.Locker,
	impresora Impresora,
	incidentes Incidentes,
	opts Opciones,
) ComandaService {
	return &comandaService{
		comandas:  comandas,
		productos: productos,
		mesas:     mesas,
		locker:    locker,
		impresora: impresora,
		liq: &liquidador{
			movimientos: movimientos,
			incidentes:  incidentes,
			politica:    opts.Reintentos,
		},
		opts: opts,
	}
}

// referenciaComanda namespaces tab codes in the ledger so they cannot clash
// with client-chosen sale codes.
func referenciaComanda(codigo string) string { return "comanda/" + codigo }

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *comandaService) Abrir(ctx context.Context, actor string, req dto.AbrirComandaRequest) (*dto.ComandaResponse, error) {
	mesaID, err := uuid.Parse(req.MesaID)
	if err != nil {
		return nil, fmt.Errorf("%w: mesa_id inválido", ErrValidacion)
	}
	now := time.Now()
	codigo := strings.TrimSpace(req.Codigo)
	if codigo == "" {
		codigo = generarCodigo("CMD", now)
	}

	if err := s.mesas.Ocupar(ctx, mesaID); err != nil {
		return nil, err
	}

	c := &model.Comanda{
		ID:        uuid.New(),
		Codigo:    codigo,
		MesaID:    mesaID,
		Cliente:   req.Cliente,
		Actor:     actor,
		Subtotal:  decimal.Zero,
		Descuento: decimal.Zero,
		Total:     decimal.Zero,
		Estado:    model.ComandaAbierta,
		AbiertaEn: now,
	}
	if err := s.comandas.Create(ctx, c); err != nil {
		// the insert may have landed before its response was lost
		cur, ferr := s.comandas.FindByID(context.WithoutCancel(ctx), c.ID)
		switch {
		case ferr == nil:
			log.Warn().Err(err).Str("codigo", codigo).Msg("comanda: create reported an error but the tab exists, keeping it")
			c = cur
		case errors.Is(ferr, repository.ErrNotFound):
			s.liberarMesa(ctx, mesaID, codigo)
			if errors.Is(err, repository.ErrDuplicado) {
				return nil, fmt.Errorf("%w: %s", ErrCodigoDuplicado, codigo)
			}
			return nil, err
		default:
			log.Error().Err(err).AnErr("lookup", ferr).Str("codigo", codigo).Str("mesa_id", mesaID.String()).
				Msg("comanda: cannot tell whether the tab was created, leaving table ocupada")
			return nil, fmt.Errorf("%w: abrir comanda %s: %v", ErrResultadoIncierto, codigo, err)
		}
	}

	log.Info().Str("codigo", codigo).Str("mesa_id", mesaID.String()).Str("actor", actor).Msg("comanda: opened")
	return comandaToResponse(c), nil
}

func (s *comandaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ComandaResponse, error) {
	c, err := s.cargar(ctx, id)
	if err != nil {
		return nil, err
	}
	return comandaToResponse(c), nil
}

func (s *comandaService) Listar(ctx context.Context, filter dto.ComandaFilter) ([]dto.ComandaResponse, error) {
	comandas, err := s.comandas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ComandaResponse, 0, len(comandas))
	for i := range comandas {
		out = append(out, *comandaToResponse(&comandas[i]))
	}
	return out, nil
}

// ── Edición ───────────────────────────────────────────────────────────────────

func (s *comandaService) AgregarItem(ctx context.Context, id uuid.UUID, req dto.AgregarItemRequest) (*dto.ComandaResponse, error) {
	if req.Cantidad <= 0 {
		return nil, ErrCantidadInvalida
	}
	pid, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: producto_id inválido", ErrValidacion)
	}

	var out *model.Comanda
	err = s.conLock(ctx, id, func() error {
		c, err := s.cargarAbierta(ctx, id)
		if err != nil {
			return err
		}
		p, err := s.productos.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProductoNoDisponible
			}
			return err
		}
		if !p.Activo {
			return ErrProductoNoDisponible
		}
		it, err := model.NewComandaItem(c.ID, p, req.Cantidad, req.Descuento, req.Nota)
		if err != nil {
			return err
		}
		if err := s.comandas.AddItem(ctx, it); err != nil {
			return err
		}
		c.Items = append(c.Items, *it)
		c.Recalcular()
		if err := s.comandas.UpdateTotales(ctx, c); err != nil {
			s.deshacer(ctx, c.Codigo, func(cctx context.Context) error {
				err := s.comandas.DeleteItem(cctx, c.ID, it.ID)
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			})
			return comandaErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comandaToResponse(out), nil
}

func (s *comandaService) AnularItem(ctx context.Context, id, itemID uuid.UUID) (*dto.ComandaResponse, error) {
	var out *model.Comanda
	err := s.conLock(ctx, id, func() error {
		c, err := s.cargarAbierta(ctx, id)
		if err != nil {
			return err
		}
		idx := -1
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrItemNoEncontrado
		}
		quitado := c.Items[idx]
		if err := s.comandas.DeleteItem(ctx, c.ID, itemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrItemNoEncontrado
			}
			return err
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		c.Recalcular()
		if err := s.comandas.UpdateTotales(ctx, c); err != nil {
			s.deshacer(ctx, c.Codigo, func(cctx context.Context) error {
				err := s.comandas.AddItem(cctx, &quitado)
				if errors.Is(err, repository.ErrDuplicado) {
					return nil
				}
				return err
			})
			return comandaErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comandaToResponse(out), nil
}

func (s *comandaService) AplicarDescuento(ctx context.Context, id uuid.UUID, monto decimal.Decimal) (*dto.ComandaResponse, error) {
	if monto.IsNegative() {
		return nil, fmt.Errorf("%w: el descuento no puede ser negativo", ErrValidacion)
	}
	var out *model.Comanda
	err := s.conLock(ctx, id, func() error {
		c, err := s.cargarAbierta(ctx, id)
		if err != nil {
			return err
		}
		if monto.GreaterThan(c.Subtotal) && !s.opts.PermitirDescuentoExcedido {
			return ErrDescuentoExcedido
		}
		c.Descuento = monto
		c.Recalcular()
		if err := s.comandas.UpdateTotales(ctx, c); err != nil {
			return comandaErr(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comandaToResponse(out), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// 1. record one pendiente salida movement per item
// 2. apply them one by one, decrementing stock; anul all on failure
// 3. mark the tab cerrada
// 4. free the table
// 5. hand the receipt to the printer (non-fatal)

func (s *comandaService) Cerrar(ctx context.Context, actor string, id uuid.UUID, req dto.CerrarComandaRequest) (*dto.ComandaResponse, error) {
	if !model.MetodoPagoValido(req.MetodoPago) {
		return nil, ErrMetodoPagoInvalido
	}
	var clave *string
	if k := strings.TrimSpace(req.Clave); k != "" {
		clave = &k
	}

	var out *model.Comanda
	repetido := false
	err := s.conLock(ctx, id, func() error {
		c, err := s.cargar(ctx, id)
		if err != nil {
			return err
		}
		if c.Estado == model.ComandaCerrada && clave != nil && c.ClaveCierre != nil && *c.ClaveCierre == *clave {
			out, repetido = c, true
			return nil
		}
		if c.Estado != model.ComandaAbierta {
			return ErrComandaNoAbierta
		}
		if len(c.Items) == 0 {
			return ErrComandaVacia
		}

		sctx, cancel := context.WithTimeout(ctx, s.opts.TimeoutLiquidacion)
		defer cancel()

		if err := s.liquidar(sctx, actor, c); err != nil {
			return incierto(err)
		}

		now := time.Now()
		err = retry.Do(sctx, s.liq.politica, func(int) error {
			err := s.comandas.Cerrar(sctx, c, req.MetodoPago, clave, now)
			if errors.Is(err, repository.ErrTransicion) || errors.Is(err, repository.ErrVersion) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			// a previous attempt may have landed before its response was lost
			if cur, ferr := s.comandas.FindByID(context.WithoutCancel(ctx), c.ID); ferr == nil && cur.Estado == model.ComandaCerrada {
				c = cur
			} else {
				log.Error().Err(err).Str("codigo", c.Codigo).
					Msg("comanda: stock settled but tab still open; retrying the close will finish it")
				return fmt.Errorf("%w: cerrar comanda %s: %v", ErrResultadoIncierto, c.Codigo, err)
			}
		}

		s.liberarMesa(ctx, c.MesaID, c.Codigo)
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := comandaToResponse(out)
	if repetido {
		return resp, nil
	}
	log.Info().Str("codigo", out.Codigo).Str("total", out.Total.StringFixed(2)).Str("actor", actor).Msg("comanda: closed")
	if perr := s.imprimir(ctx, out, actor); perr != nil {
		msg := perr.Error()
		resp.ImpresionError = &msg
	}
	return resp, nil
}

// liquidar settles stock and ledger for the tab. Movements left by an earlier
// attempt are resumed, not repeated.
func (s *comandaService) liquidar(ctx context.Context, actor string, c *model.Comanda) error {
	ref := referenciaComanda(c.Codigo)
	nota := "comanda " + c.Codigo
	ops := make([]operacionStock, 0, len(c.Items))
	for _, it := range c.Items {
		ops = append(ops, operacionStock{
			ProductoID:     it.ProductoID,
			Nombre:         it.Nombre,
			Tipo:           model.MovimientoSalida,
			Cantidad:       it.Cantidad,
			Motivo:         model.MotivoVenta,
			PrecioUnitario: it.PrecioUnitario,
			Nota:           &nota,
		})
	}
	_, err := s.liq.aplicar(ctx, ref, actor, ops)
	return err
}

func (s *comandaService) Cancelar(ctx context.Context, id uuid.UUID) (*dto.ComandaResponse, error) {
	var out *model.Comanda
	err := s.conLock(ctx, id, func() error {
		c, err := s.cargar(ctx, id)
		if err != nil {
			return err
		}
		if c.Estado == model.ComandaCancelada {
			out = c
			return nil
		}
		if c.Estado != model.ComandaAbierta {
			return ErrComandaNoAbierta
		}
		if err := s.comandas.Cancelar(ctx, c, time.Now()); err != nil {
			return comandaErr(err)
		}
		s.liberarMesa(ctx, c.MesaID, c.Codigo)
		log.Info().Str("codigo", c.Codigo).Msg("comanda: cancelled")
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comandaToResponse(out), nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *comandaService) conLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	lctx, cancel := context.WithTimeout(ctx, s.opts.TimeoutLiquidacion)
	unlock, err := s.locker.Lock(lctx, "comanda:"+id.String())
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConflicto, err)
	}
	defer unlock()
	return fn()
}

func (s *comandaService) cargar(ctx context.Context, id uuid.UUID) (*model.Comanda, error) {
	c, err := s.comandas.FindByID(ctx, id)
	if err != nil {
		return nil, comandaErr(err)
	}
	return c, nil
}

func (s *comandaService) cargarAbierta(ctx context.Context, id uuid.UUID) (*model.Comanda, error) {
	c, err := s.cargar(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Estado != model.ComandaAbierta {
		return nil, ErrComandaNoAbierta
	}
	return c, nil
}

// liberarMesa frees the table with retries. A failure leaves the table
// ocupada without an open tab and is only logged.
func (s *comandaService) liberarMesa(ctx context.Context, mesaID uuid.UUID, codigo string) {
	cctx := context.WithoutCancel(ctx)
	err := retry.Do(cctx, s.liq.politica, func(int) error { return s.mesas.Liberar(cctx, mesaID) })
	if err != nil {
		log.Error().Err(err).Str("mesa_id", mesaID.String()).Str("codigo", codigo).Msg("comanda: failed to free table")
	}
}

// deshacer runs a best-effort compensation for a tab edit.
func (s *comandaService) deshacer(ctx context.Context, codigo string, fn func(ctx context.Context) error) {
	cctx := context.WithoutCancel(ctx)
	if err := retry.Do(cctx, s.liq.politica, func(int) error { return fn(cctx) }); err != nil {
		log.Error().Err(err).Str("codigo", codigo).Msg("comanda: failed to undo item change, totals may be stale")
	}
}

func (s *comandaService) imprimir(ctx context.Context, c *model.Comanda, actor string) error {
	if s.impresora == nil {
		return nil
	}
	items := make([]dto.ReciboItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, dto.ReciboItem{Nombre: it.Nombre, Cantidad: it.Cantidad, PrecioUnitario: it.PrecioUnitario, Subtotal: it.Subtotal})
	}
	metodo := ""
	if c.MetodoPago != nil {
		metodo = *c.MetodoPago
	}
	err := s.impresora.Imprimir(ctx, dto.ReciboPayload{
		Tipo:       "comanda",
		Codigo:     c.Codigo,
		Items:      items,
		Subtotal:   c.Subtotal,
		Descuento:  c.Descuento,
		Total:      c.Total,
		MetodoPago: metodo,
		Actor:      actor,
		Fecha:      time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn().Err(err).Str("codigo", c.Codigo).Msg("comanda: receipt handoff failed")
	}
	return err
}

func comandaErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrComandaNoEncontrada
	case errors.Is(err, repository.ErrTransicion):
		return ErrComandaNoAbierta
	case errors.Is(err, repository.ErrVersion):
		return ErrConflicto
	}
	return err
}

func comandaToResponse(c *model.Comanda) *dto.ComandaResponse {
	items := make([]dto.ComandaItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, dto.ComandaItemResponse{
			ID:             it.ID.String(),
			ProductoID:     it.ProductoID.String(),
			Producto:       it.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario.Round(2),
			Descuento:      it.Descuento.Round(2),
			Subtotal:       it.Subtotal.Round(2),
			Nota:           it.Nota,
		})
	}
	resp := &dto.ComandaResponse{
		ID:         c.ID.String(),
		Codigo:     c.Codigo,
		MesaID:     c.MesaID.String(),
		Cliente:    c.Cliente,
		Items:      items,
		Subtotal:   c.Subtotal.Round(2),
		Descuento:  c.Descuento.Round(2),
		Total:      c.Total.Round(2),
		MetodoPago: c.MetodoPago,
		Estado:     string(c.Estado),
		Version:    c.Version,
		AbiertaEn:  c.AbiertaEn.Format(time.RFC3339),
	}
	if c.CerradaEn != nil {
		s := c.CerradaEn.Format(time.RFC3339)
		resp.CerradaEn = &s
	}
	return resp
}
