package service

import (
	"context"
	"errors"
	"fmt"

	"barpos/internal/dto"
	"barpos/internal/model"
	"barpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProductoService exposes the catalog. Stock is read-only here: it only
// changes through the ledger.
type ProductoService interface {
	// Crear inserts the product with zero stock and records StockInicial as
	// an inventario_inicial movement.
	Crear(ctx context.Context, actor string, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
}

type productoService struct {
	repo   repository.ProductoRepository
	ledger LedgerService
}

func NewProductoService(repo repository.ProductoRepository, ledger LedgerService) ProductoService {
	return &productoService{repo: repo, ledger: ledger}
}

func (s *productoService) Crear(ctx context.Context, actor string, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if req.PrecioVenta.IsNegative() || req.PrecioCosto.IsNegative() {
		return nil, fmt.Errorf("%w: los precios no pueden ser negativos", ErrValidacion)
	}
	unidad := req.UnidadMedida
	if unidad == "" {
		unidad = "unidad"
	}
	p := &model.Producto{
		CodigoBarras: req.CodigoBarras,
		Nombre:       req.Nombre,
		Descripcion:  req.Descripcion,
		Categoria:    req.Categoria,
		PrecioCosto:  req.PrecioCosto,
		PrecioVenta:  req.PrecioVenta,
		StockMinimo:  req.StockMinimo,
		UnidadMedida: unidad,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, fmt.Errorf("%w: codigo de barras %s", ErrCodigoDuplicado, req.CodigoBarras)
		}
		return nil, err
	}

	if req.StockInicial > 0 {
		_, err := s.ledger.RegistrarManual(ctx, actor, dto.RegistrarMovimientoRequest{
			ProductoID:     p.ID.String(),
			Tipo:           string(model.MovimientoEntrada),
			Cantidad:       req.StockInicial,
			Motivo:         model.MotivoInventarioInicial,
			PrecioUnitario: p.PrecioCosto,
		})
		if err != nil {
			// the product exists with zero stock; the entry can be recorded later
			log.Error().Err(err).Str("producto_id", p.ID.String()).Msg("producto: initial stock not recorded")
			return nil, err
		}
		p.StockActual = req.StockInicial
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	pages := 0
	if filter.Limit > 0 {
		pages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}
	return &dto.ProductoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit, TotalPages: pages}, nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:           p.ID.String(),
		CodigoBarras: p.CodigoBarras,
		Nombre:       p.Nombre,
		Descripcion:  p.Descripcion,
		Categoria:    p.Categoria,
		PrecioCosto:  p.PrecioCosto.Round(2),
		PrecioVenta:  p.PrecioVenta.Round(2),
		StockActual:  p.StockActual,
		StockMinimo:  p.StockMinimo,
		UnidadMedida: p.UnidadMedida,
		Activo:       p.Activo,
	}
}
