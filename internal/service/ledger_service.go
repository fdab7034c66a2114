package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barpos/internal/dto"
	"barpos/internal/model"
	"barpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LedgerService owns the stock movement ledger. Sales and tab closes write
// to it through the settlement saga; this service adds manual movements,
// queries and reconciliation.
type LedgerService interface {
	// RegistrarManual applies a manual entrada or salida and records it.
	RegistrarManual(ctx context.Context, actor string, req dto.RegistrarMovimientoRequest) (*dto.MovimientoResponse, error)
	ListarPorProducto(ctx context.Context, productoID uuid.UUID, desde *time.Time) ([]dto.MovimientoResponse, error)
	Listar(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	// Revertir records the opposite movement of a completed manual one, moving
	// stock back. Repeating it for the same movement has no further effect.
	Revertir(ctx context.Context, actor string, id uuid.UUID) (*dto.MovimientoResponse, error)
	ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
	// Conciliar returns nil when the product's stock matches its ledger.
	Conciliar(ctx context.Context, productoID uuid.UUID) (*dto.DiscrepanciaResponse, error)
	ConciliarTodo(ctx context.Context) (*dto.ConciliacionResponse, error)
}

type ledgerService struct {
	productos   repository.ProductoRepository
	movimientos repository.MovimientoStockRepository
	liq         *liquidador
}

func NewLedgerService(
	productos repository.ProductoRepository,
	movimientos repository.MovimientoStockRepository,
	incidentes Incidentes,
	opts Opciones,
) LedgerService {
	return &ledgerService{
		productos:   productos,
		movimientos: movimientos,
		liq: &liquidador{
			movimientos: movimientos,
			incidentes:  incidentes,
			politica:    opts.Reintentos,
		},
	}
}

func (s *ledgerService) RegistrarManual(ctx context.Context, actor string, req dto.RegistrarMovimientoRequest) (*dto.MovimientoResponse, error) {
	pid, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("%w: producto_id inválido", ErrValidacion)
	}
	tipo := model.TipoMovimiento(req.Tipo)
	if req.Motivo == model.MotivoVenta {
		return nil, fmt.Errorf("%w: las ventas no se registran manualmente", ErrValidacion)
	}
	p, err := s.productos.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	precio := req.PrecioUnitario
	if precio.IsZero() {
		precio = p.PrecioCosto
	}

	referencia := generarCodigo("MOV", time.Now())
	movs, err := s.liq.aplicar(ctx, referencia, actor, []operacionStock{{
		ProductoID:     pid,
		Nombre:         p.Nombre,
		Tipo:           tipo,
		Cantidad:       req.Cantidad,
		Motivo:         req.Motivo,
		PrecioUnitario: precio,
		Proveedor:      req.Proveedor,
		Nota:           req.Nota,
	}})
	if err != nil {
		return nil, err
	}
	log.Info().Str("producto_id", pid.String()).Str("tipo", req.Tipo).Str("motivo", req.Motivo).
		Int("cantidad", req.Cantidad).Str("actor", actor).Msg("ledger: manual movement recorded")
	resp := movimientoToResponse(movs[0])
	return &resp, nil
}

func (s *ledgerService) ListarPorProducto(ctx context.Context, productoID uuid.UUID, desde *time.Time) ([]dto.MovimientoResponse, error) {
	movs, _, err := s.movimientos.List(ctx, repository.MovimientoStockFilter{ProductoID: &productoID, Desde: desde})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movimientoToResponse(&movs[i]))
	}
	return out, nil
}

func (s *ledgerService) Listar(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	f := repository.MovimientoStockFilter{
		Tipo:       filter.Tipo,
		Referencia: filter.Referencia,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.ProductoID != "" {
		pid, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("%w: producto_id inválido", ErrValidacion)
		}
		f.ProductoID = &pid
	}
	if filter.Desde != "" {
		desde, err := time.Parse(time.RFC3339, filter.Desde)
		if err != nil {
			return nil, fmt.Errorf("%w: desde debe ser RFC3339", ErrValidacion)
		}
		f.Desde = &desde
	}
	movs, total, err := s.movimientos.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		data = append(data, movimientoToResponse(&movs[i]))
	}
	return &dto.MovimientoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *ledgerService) Revertir(ctx context.Context, actor string, id uuid.UUID) (*dto.MovimientoResponse, error) {
	orig, err := s.movimientos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMovimientoNoEncontrado
		}
		return nil, err
	}
	if orig.Estado != model.MovimientoCompletado || orig.Motivo == model.MotivoVenta {
		return nil, fmt.Errorf("%w: %s está %s con motivo %s", ErrMovimientoNoRevertible, orig.ID, orig.Estado, orig.Motivo)
	}

	tipo := model.MovimientoEntrada
	if orig.Tipo == model.MovimientoEntrada {
		tipo = model.MovimientoSalida
	}
	nombre := orig.ProductoID.String()
	if p, err := s.productos.FindByID(ctx, orig.ProductoID); err == nil {
		nombre = p.Nombre
	}
	nota := "reversión de " + orig.ID.String()
	movs, err := s.liq.aplicar(ctx, "reversion/"+orig.ID.String(), actor, []operacionStock{{
		ProductoID:     orig.ProductoID,
		Nombre:         nombre,
		Tipo:           tipo,
		Cantidad:       orig.Cantidad,
		Motivo:         model.MotivoAjuste,
		PrecioUnitario: orig.PrecioUnitario,
		Nota:           &nota,
	}})
	if err != nil {
		return nil, err
	}
	log.Info().Str("movimiento_id", orig.ID.String()).Str("producto_id", orig.ProductoID.String()).
		Int("cantidad", orig.Cantidad).Str("actor", actor).Msg("ledger: movement reverted")
	resp := movimientoToResponse(movs[0])
	return &resp, nil
}

func (s *ledgerService) ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	productos, err := s.productos.ListBajoStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, 0, len(productos))
	for _, p := range productos {
		out = append(out, dto.AlertaStockResponse{
			ProductoID:  p.ID.String(),
			Nombre:      p.Nombre,
			StockActual: p.StockActual,
			StockMinimo: p.StockMinimo,
			Diferencia:  p.StockMinimo - p.StockActual,
		})
	}
	return out, nil
}

func (s *ledgerService) Conciliar(ctx context.Context, productoID uuid.UUID) (*dto.DiscrepanciaResponse, error) {
	p, err := s.productos.FindByID(ctx, productoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	return s.conciliar(ctx, p)
}

func (s *ledgerService) conciliar(ctx context.Context, p *model.Producto) (*dto.DiscrepanciaResponse, error) {
	saldo, err := s.movimientos.SaldoCompletado(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if saldo == p.StockActual {
		return nil, nil
	}
	return &dto.DiscrepanciaResponse{
		ProductoID:  p.ID.String(),
		Nombre:      p.Nombre,
		StockActual: p.StockActual,
		SaldoLedger: saldo,
		Diferencia:  p.StockActual - saldo,
	}, nil
}

// ConciliarTodo compares every product with its ledger. Stock and ledger move
// in the same transaction, so any difference found here needs an operator.
func (s *ledgerService) ConciliarTodo(ctx context.Context) (*dto.ConciliacionResponse, error) {
	productos, err := s.productos.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.ConciliacionResponse{
		Revisados:     len(productos),
		Discrepancias: []dto.DiscrepanciaResponse{},
	}
	for i := range productos {
		d, err := s.conciliar(ctx, &productos[i])
		if err != nil {
			return nil, err
		}
		if d != nil {
			resp.Discrepancias = append(resp.Discrepancias, *d)
		}
	}
	resp.EjecutadoEn = time.Now().UTC().Format(time.RFC3339)
	return resp, nil
}

func movimientoToResponse(m *model.MovimientoStock) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:             m.ID.String(),
		ProductoID:     m.ProductoID.String(),
		Tipo:           string(m.Tipo),
		Motivo:         m.Motivo,
		Cantidad:       m.Cantidad,
		PrecioUnitario: m.PrecioUnitario.Round(2),
		Actor:          m.Actor,
		Estado:         string(m.Estado),
		Referencia:     m.Referencia,
		Proveedor:      m.Proveedor,
		Nota:           m.Nota,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}
