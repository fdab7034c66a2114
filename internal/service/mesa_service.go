package service

import (
	"context"
	"errors"
	"fmt"

	"barpos/internal/dto"
	"barpos/internal/model"
	"barpos/internal/repository"

	"github.com/google/uuid"
)

// MesaService is the table registry. Ocupar and Liberar are driven by tabs;
// CambiarEstado is the administrative path and never touches ocupada.
type MesaService interface {
	Crear(ctx context.Context, req dto.CrearMesaRequest) (*dto.MesaResponse, error)
	Listar(ctx context.Context) ([]dto.MesaResponse, error)
	CambiarEstado(ctx context.Context, id uuid.UUID, estado model.EstadoMesa) (*dto.MesaResponse, error)
	Ocupar(ctx context.Context, id uuid.UUID) error
	// Liberar is idempotent: freeing a free table succeeds.
	Liberar(ctx context.Context, id uuid.UUID) error
}

type mesaService struct {
	repo repository.MesaRepository
}

func NewMesaService(repo repository.MesaRepository) MesaService {
	return &mesaService{repo: repo}
}

// transicionesAdmin lists, per target state, the states it can be reached from.
var transicionesAdmin = map[model.EstadoMesa][]model.EstadoMesa{
	model.MesaLibre:         {model.MesaReservada, model.MesaMantenimiento},
	model.MesaReservada:     {model.MesaLibre},
	model.MesaMantenimiento: {model.MesaLibre, model.MesaReservada},
}

func (s *mesaService) Crear(ctx context.Context, req dto.CrearMesaRequest) (*dto.MesaResponse, error) {
	if req.Numero <= 0 || req.Capacidad <= 0 {
		return nil, fmt.Errorf("%w: numero y capacidad deben ser positivos", ErrValidacion)
	}
	m := &model.Mesa{Numero: req.Numero, Etiqueta: req.Etiqueta, Capacidad: req.Capacidad, Estado: model.MesaLibre, Activo: true}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, fmt.Errorf("%w: mesa %d", ErrCodigoDuplicado, req.Numero)
		}
		return nil, err
	}
	return mesaToResponse(m), nil
}

func (s *mesaService) Listar(ctx context.Context) ([]dto.MesaResponse, error) {
	mesas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MesaResponse, 0, len(mesas))
	for i := range mesas {
		out = append(out, *mesaToResponse(&mesas[i]))
	}
	return out, nil
}

func (s *mesaService) CambiarEstado(ctx context.Context, id uuid.UUID, estado model.EstadoMesa) (*dto.MesaResponse, error) {
	desde, ok := transicionesAdmin[estado]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransicionMesa, estado)
	}
	if err := s.repo.Transicion(ctx, id, estado, desde...); err != nil {
		return nil, mesaErr(err, ErrTransicionMesa)
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mesaErr(err, nil)
	}
	return mesaToResponse(m), nil
}

func (s *mesaService) Ocupar(ctx context.Context, id uuid.UUID) error {
	return mesaErr(s.repo.Transicion(ctx, id, model.MesaOcupada, model.MesaLibre), ErrMesaNoDisponible)
}

func (s *mesaService) Liberar(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Transicion(ctx, id, model.MesaLibre, model.MesaOcupada)
	if errors.Is(err, repository.ErrTransicion) {
		// not ocupada: already free
		return nil
	}
	return mesaErr(err, nil)
}

func mesaErr(err error, transicion error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrMesaNoEncontrada
	case transicion != nil && errors.Is(err, repository.ErrTransicion):
		return transicion
	}
	return err
}

func mesaToResponse(m *model.Mesa) *dto.MesaResponse {
	return &dto.MesaResponse{
		ID:        m.ID.String(),
		Numero:    m.Numero,
		Etiqueta:  m.Etiqueta,
		Capacidad: m.Capacidad,
		Estado:    string(m.Estado),
	}
}
