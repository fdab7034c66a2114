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

type VentaService interface {
	// Checkout settles a counter sale. Repeating it with the same Codigo
	// after success returns the same sale without side effects.
	Checkout(ctx context.Context, actor string, req dto.CheckoutRequest) (*dto.VentaResponse, error)
	ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo      repository.VentaRepository
	productos repository.ProductoRepository
	locker    lock.Locker
	impresora Impresora
	liq       *liquidador
	opts      Opciones
}

func NewVentaService(
	repo repository.VentaRepository,
	productos repository.ProductoRepository,
	movimientos repository.MovimientoStockRepository,
	locker lock.Locker,
	impresora Impresora,
	incidentes Incidentes,
	opts Opciones,
) VentaService {
	return &ventaService{
		repo:      repo,
		productos: productos,
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

func referenciaVenta(codigo string) string { return "venta/" + codigo }

// ── Checkout ──────────────────────────────────────────────────────────────────
//   1. validate the cart and pre-flight stock (no mutation)
//   2. insert the Venta as pendiente
//   3. record pendiente salida movements and apply them (saga)
//   4. mark finalizada, or fallida if step 3 was rolled back
//   5. hand the receipt to the printer (non-fatal)

func (s *ventaService) Checkout(ctx context.Context, actor string, req dto.CheckoutRequest) (*dto.VentaResponse, error) {
	if len(req.Lineas) == 0 {
		return nil, ErrCarritoVacio
	}
	if !model.MetodoPagoValido(req.MetodoPago) {
		return nil, ErrMetodoPagoInvalido
	}
	if req.Descuento.IsNegative() {
		return nil, fmt.Errorf("%w: el descuento no puede ser negativo", ErrValidacion)
	}
	for _, ln := range req.Lineas {
		if ln.Cantidad <= 0 {
			return nil, ErrCantidadInvalida
		}
	}

	codigo := strings.TrimSpace(req.Codigo)
	if codigo == "" {
		codigo = generarCodigo("VTA", time.Now())
	}

	lctx, cancel := context.WithTimeout(ctx, s.opts.TimeoutLiquidacion)
	unlock, err := s.locker.Lock(lctx, "venta:"+codigo)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOperacionEnCurso, err)
	}
	defer unlock()

	if existente, err := s.repo.FindByCodigo(ctx, codigo); err == nil {
		return s.repetido(ctx, existente)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	venta, err := s.preparar(ctx, actor, codigo, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, venta); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, ErrOperacionEnCurso
		}
		return nil, err
	}

	return s.completar(ctx, venta)
}

// completar runs steps 3 to 5 for a pendiente sale. It is also how a retry
// finishes a sale an earlier attempt left pendiente.
func (s *ventaService) completar(ctx context.Context, venta *model.Venta) (*dto.VentaResponse, error) {
	sctx, cancel := context.WithTimeout(ctx, s.opts.TimeoutLiquidacion)
	defer cancel()

	if err := s.liquidar(sctx, venta); err != nil {
		if sinDesenlace(err) {
			// stock may be partly applied; the sale stays pendiente so a retry can resume it
			log.Warn().Err(err).Str("codigo", venta.Codigo).Msg("venta: settlement outcome unknown, sale left pendiente")
		} else {
			s.marcarFallida(ctx, venta, err)
		}
		return nil, incierto(err)
	}

	if err := s.finalizar(sctx, venta); err != nil {
		log.Error().Err(err).Str("codigo", venta.Codigo).
			Msg("venta: stock settled but sale still pendiente; retrying the checkout will finish it")
		return nil, fmt.Errorf("%w: finalizar venta %s: %v", ErrResultadoIncierto, venta.Codigo, err)
	}

	log.Info().Str("codigo", venta.Codigo).Str("total", venta.Total.StringFixed(2)).Str("actor", venta.Actor).Msg("venta: finalized")
	resp := ventaToResponse(venta)
	if perr := s.imprimir(ctx, venta); perr != nil {
		msg := perr.Error()
		resp.ImpresionError = &msg
		if err := s.repo.SetImpresionError(context.WithoutCancel(ctx), venta.ID, msg); err != nil {
			log.Warn().Err(err).Str("codigo", venta.Codigo).Msg("venta: could not persist impresion_error")
		}
	}
	return resp, nil
}

// liquidar applies one salida movement per sale line.
func (s *ventaService) liquidar(ctx context.Context, v *model.Venta) error {
	if len(v.Items) == 0 {
		return ErrCarritoVacio
	}
	ops := make([]operacionStock, 0, len(v.Items))
	for _, it := range v.Items {
		ops = append(ops, operacionStock{
			ProductoID:     it.ProductoID,
			Nombre:         it.Nombre,
			Tipo:           model.MovimientoSalida,
			Cantidad:       it.Cantidad,
			Motivo:         model.MotivoVenta,
			PrecioUnitario: it.PrecioUnitario,
		})
	}
	_, err := s.liq.aplicar(ctx, referenciaVenta(v.Codigo), v.Actor, ops)
	return err
}

// preparar resolves products, checks stock and computes totals.
func (s *ventaService) preparar(ctx context.Context, actor, codigo string, req dto.CheckoutRequest) (*model.Venta, error) {
	venta := &model.Venta{
		ID:         uuid.New(),
		Codigo:     codigo,
		Actor:      actor,
		MetodoPago: req.MetodoPago,
		Estado:     model.VentaPendiente,
	}
	pedido := map[uuid.UUID]int{}
	productos := map[uuid.UUID]*model.Producto{}
	subtotal := decimal.Zero

	for _, ln := range req.Lineas {
		pid, err := uuid.Parse(ln.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("%w: producto_id inválido", ErrValidacion)
		}
		p, ok := productos[pid]
		if !ok {
			p, err = s.productos.FindByID(ctx, pid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s", ErrProductoNoDisponible, pid)
				}
				return nil, err
			}
			if !p.Activo {
				return nil, fmt.Errorf("%w: %s", ErrProductoNoDisponible, p.Nombre)
			}
			productos[pid] = p
		}
		it, err := model.NewVentaItem(p, ln.Cantidad)
		if err != nil {
			return nil, err
		}
		it.VentaID = venta.ID
		venta.Items = append(venta.Items, *it)
		subtotal = subtotal.Add(it.Subtotal)

		pedido[pid] += ln.Cantidad
		if pedido[pid] > p.StockActual {
			return nil, &StockInsuficienteError{ProductoID: pid, Nombre: p.Nombre, Solicitado: pedido[pid], Disponible: p.StockActual}
		}
	}

	if req.Descuento.GreaterThan(subtotal) && !s.opts.PermitirDescuentoExcedido {
		return nil, ErrDescuentoExcedido
	}
	venta.Subtotal = subtotal
	venta.Descuento = req.Descuento
	venta.Total = decimal.Max(decimal.Zero, subtotal.Sub(req.Descuento))
	return venta, nil
}

// repetido answers a checkout whose code is already taken.
func (s *ventaService) repetido(ctx context.Context, v *model.Venta) (*dto.VentaResponse, error) {
	switch v.Estado {
	case model.VentaFinalizada:
		return ventaToResponse(v), nil
	case model.VentaFallida:
		return nil, ErrVentaFallida
	}
	// pendiente: an earlier attempt stopped without an outcome, so finish it
	log.Warn().Str("codigo", v.Codigo).Msg("venta: resuming a sale left pendiente by an earlier attempt")
	return s.completar(ctx, v)
}

func (s *ventaService) finalizar(ctx context.Context, v *model.Venta) error {
	err := retry.Do(ctx, s.liq.politica, func(int) error {
		err := s.repo.Transicion(ctx, v.ID, model.VentaPendiente, model.VentaFinalizada, nil)
		if errors.Is(err, repository.ErrTransicion) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	v.Estado = model.VentaFinalizada
	return nil
}

func (s *ventaService) marcarFallida(ctx context.Context, v *model.Venta, causa error) {
	cctx := context.WithoutCancel(ctx)
	motivo := causa.Error()
	err := retry.Do(cctx, s.liq.politica, func(int) error {
		return s.repo.Transicion(cctx, v.ID, model.VentaPendiente, model.VentaFallida, &motivo)
	})
	if err != nil {
		log.Error().Err(err).Str("codigo", v.Codigo).Msg("venta: could not mark sale as fallida")
		return
	}
	v.Estado = model.VentaFallida
	v.MotivoFallo = &motivo
}

func (s *ventaService) imprimir(ctx context.Context, v *model.Venta) error {
	if s.impresora == nil {
		return nil
	}
	items := make([]dto.ReciboItem, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, dto.ReciboItem{Nombre: it.Nombre, Cantidad: it.Cantidad, PrecioUnitario: it.PrecioUnitario, Subtotal: it.Subtotal})
	}
	err := s.impresora.Imprimir(ctx, dto.ReciboPayload{
		Tipo:       "venta",
		Codigo:     v.Codigo,
		Items:      items,
		Subtotal:   v.Subtotal,
		Descuento:  v.Descuento,
		Total:      v.Total,
		MetodoPago: v.MetodoPago,
		Actor:      v.Actor,
		Fecha:      time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn().Err(err).Str("codigo", v.Codigo).Msg("venta: receipt handoff failed")
	}
	return err
}

func (s *ventaService) ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVentaNoEncontrada
		}
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Producto:       it.Nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario.Round(2),
			Subtotal:       it.Subtotal.Round(2),
		})
	}
	return &dto.VentaResponse{
		ID:             v.ID.String(),
		Codigo:         v.Codigo,
		Items:          items,
		Subtotal:       v.Subtotal.Round(2),
		Descuento:      v.Descuento.Round(2),
		Total:          v.Total.Round(2),
		MetodoPago:     v.MetodoPago,
		Estado:         string(v.Estado),
		Actor:          v.Actor,
		ImpresionError: v.ImpresionError,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
}
