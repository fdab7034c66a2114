package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barpos/internal/dto"
	"barpos/internal/model"
	"barpos/internal/repository"
	"barpos/internal/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Impresora hands a receipt to the printer. A failure is reported back to the
// caller but never undoes a settlement.
type Impresora interface {
	Imprimir(ctx context.Context, recibo dto.ReciboPayload) error
}

// Incidentes receives inconsistencies that need an operator.
type Incidentes interface {
	ReportarInconsistencia(ctx context.Context, inc *InconsistenciaError)
}

// Opciones tunes the settlement engine.
type Opciones struct {
	// TimeoutLiquidacion bounds a whole close or checkout.
	TimeoutLiquidacion time.Duration
	// Reintentos is used for ledger writes, final state writes and compensation.
	Reintentos retry.Policy
	// PermitirDescuentoExcedido accepts discounts above the subtotal and
	// clamps the total at zero instead of rejecting them.
	PermitirDescuentoExcedido bool
}

func OpcionesPorDefecto() Opciones {
	return Opciones{
		TimeoutLiquidacion: 10 * time.Second,
		Reintentos:         retry.Policy{Attempts: 5, Base: 100 * time.Millisecond, Max: 2 * time.Second},
	}
}

// operacionStock is one stock mutation plus the ledger row that records it.
type operacionStock struct {
	ProductoID     uuid.UUID
	Nombre         string
	Tipo           model.TipoMovimiento
	Cantidad       int
	Motivo         string
	PrecioUnitario decimal.Decimal
	Proveedor      *string
	Nota           *string
}

// errIntentoDescartado is the cause recorded when live movements of an earlier
// attempt no longer match the batch and are undone before starting over.
var errIntentoDescartado = errors.New("intento previo descartado")

// liquidador applies a batch of stock mutations identified by a referencia as
// a saga. Step 1 writes every movement as pendiente. Step 2 applies them one by
// one; each apply moves the stock and completes its movement together, keyed
// on the movement, so repeating it is harmless. A failure anuls everything
// written so far in reverse order and the caller sees the original error.
//
// Calling aplicar again for the same referencia resumes the live movements of
// an earlier attempt instead of writing new ones, so a retry after an unknown
// outcome never moves stock twice.
type liquidador struct {
	movimientos repository.MovimientoStockRepository
	incidentes  Incidentes
	politica    retry.Policy
}

func (l *liquidador) aplicar(ctx context.Context, referencia, actor string, ops []operacionStock) ([]*model.MovimientoStock, error) {
	movs, err := l.reanudar(ctx, referencia, ops)
	if err != nil {
		return nil, err
	}
	if movs == nil {
		if movs, err = l.escribir(ctx, referencia, actor, ops); err != nil {
			return nil, err
		}
	}

	nombres := make(map[uuid.UUID]string, len(ops))
	for _, op := range ops {
		nombres[op.ProductoID] = op.Nombre
	}

	for _, m := range movs {
		if m.Estado == model.MovimientoCompletado {
			continue
		}
		err := retry.Do(ctx, l.politica, func(int) error {
			got, visto, err := l.movimientos.Aplicar(ctx, m.ID)
			switch {
			case err == nil:
				if got.Estado != model.MovimientoCompletado {
					return retry.Permanent(fmt.Errorf("movimiento %s quedó %s durante la liquidación", m.ID, got.Estado))
				}
				m.Estado = got.Estado
				return nil
			case errors.Is(err, repository.ErrStockInsuficiente), errors.Is(err, repository.ErrNotFound):
				return retry.Permanent(traducirStock(m, nombres[m.ProductoID], visto, err))
			}
			return err
		})
		if err != nil {
			log.Info().Err(err).Str("referencia", referencia).Str("producto_id", m.ProductoID.String()).
				Int("cantidad", m.Cantidad).Msg("liquidacion: stock mutation rejected")
			return nil, l.fallar(ctx, referencia, err, movs)
		}
	}

	log.Info().Str("referencia", referencia).Int("lineas", len(movs)).Msg("liquidacion: applied")
	return movs, nil
}

// escribir inserts one pendiente movement per operation. Every row is built
// before the first insert so that validation fails with nothing written.
func (l *liquidador) escribir(ctx context.Context, referencia, actor string, ops []operacionStock) ([]*model.MovimientoStock, error) {
	movs := make([]*model.MovimientoStock, len(ops))
	for i, op := range ops {
		m, err := model.NewMovimiento(op.ProductoID, op.Tipo, op.Cantidad, op.Motivo, actor, op.PrecioUnitario, referencia)
		if err != nil {
			return nil, err
		}
		m.Proveedor = op.Proveedor
		m.Nota = op.Nota
		movs[i] = m
	}

	for i, m := range movs {
		err := retry.Do(ctx, l.politica, func(int) error {
			err := l.movimientos.Create(ctx, m)
			if errors.Is(err, repository.ErrDuplicado) {
				// an earlier attempt landed
				return nil
			}
			return err
		})
		if err != nil {
			err = fmt.Errorf("registrar movimiento de %s: %w", m.ProductoID, err)
			// the failed insert may have landed anyway, so it is anulled too
			return nil, l.fallar(ctx, referencia, err, movs[:i+1])
		}
	}
	return movs, nil
}

// reanudar returns the live movements left by an earlier attempt when they
// match ops one for one. Live movements that do not match are anulled and nil
// is returned, as it is when there are none.
func (l *liquidador) reanudar(ctx context.Context, referencia string, ops []operacionStock) ([]*model.MovimientoStock, error) {
	previos, _, err := l.movimientos.List(ctx, repository.MovimientoStockFilter{Referencia: referencia})
	if err != nil {
		return nil, err
	}
	var vivos []*model.MovimientoStock
	for i := range previos {
		if previos[i].Estado != model.MovimientoAnulado {
			vivos = append(vivos, &previos[i])
		}
	}
	if len(vivos) == 0 {
		return nil, nil
	}
	if coinciden(vivos, ops) {
		log.Warn().Str("referencia", referencia).Int("movimientos", len(vivos)).
			Msg("liquidacion: resuming an earlier attempt")
		return vivos, nil
	}
	log.Warn().Str("referencia", referencia).Int("movimientos", len(vivos)).
		Msg("liquidacion: earlier attempt no longer matches, undoing it")
	if err := l.compensar(ctx, referencia, errIntentoDescartado, vivos); err != nil {
		return nil, err
	}
	return nil, nil
}

type claveOperacion struct {
	productoID uuid.UUID
	tipo       model.TipoMovimiento
	cantidad   int
}

// coinciden reports whether movs and ops describe the same multiset of
// (product, direction, quantity).
func coinciden(movs []*model.MovimientoStock, ops []operacionStock) bool {
	if len(movs) != len(ops) {
		return false
	}
	faltan := make(map[claveOperacion]int, len(ops))
	for _, op := range ops {
		faltan[claveOperacion{op.ProductoID, op.Tipo, op.Cantidad}]++
	}
	for _, m := range movs {
		k := claveOperacion{m.ProductoID, m.Tipo, m.Cantidad}
		if faltan[k] == 0 {
			return false
		}
		faltan[k]--
	}
	return true
}

func traducirStock(m *model.MovimientoStock, nombre string, p *model.Producto, err error) error {
	switch {
	case errors.Is(err, repository.ErrStockInsuficiente):
		disponible := 0
		if p != nil {
			disponible = p.StockActual
		}
		return &StockInsuficienteError{ProductoID: m.ProductoID, Nombre: nombre, Solicitado: m.Cantidad, Disponible: disponible}
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrProductoNoEncontrado, m.ProductoID)
	}
	return err
}

// fallar undoes movs and returns causa, or the *InconsistenciaError raised
// when the undo could not finish.
func (l *liquidador) fallar(ctx context.Context, referencia string, causa error, movs []*model.MovimientoStock) error {
	if cerr := l.compensar(ctx, referencia, causa, movs); cerr != nil {
		return cerr
	}
	return causa
}

// compensar anuls movs in reverse order. Anular restores the stock of the
// completado ones and is keyed on the movement, so a movement whose apply had
// an unknown outcome is resolved correctly either way. It ignores the
// caller's cancellation: once started it runs to completion or until the
// retry policy is exhausted.
func (l *liquidador) compensar(ctx context.Context, referencia string, causa error, movs []*model.MovimientoStock) error {
	if len(movs) == 0 {
		return nil
	}
	cctx := context.WithoutCancel(ctx)

	inc := &InconsistenciaError{Referencia: referencia, Pendientes: map[uuid.UUID]int{}, Causa: causa}

	for i := len(movs) - 1; i >= 0; i-- {
		m := movs[i]
		err := retry.Do(cctx, l.politica, func(attempt int) error {
			if attempt > 0 {
				log.Warn().Str("referencia", referencia).Str("producto_id", m.ProductoID.String()).
					Int("intento", attempt+1).Msg("liquidacion: retrying compensation")
			}
			err := l.movimientos.Anular(cctx, m.ID)
			if errors.Is(err, repository.ErrNotFound) {
				// the insert never landed
				return nil
			}
			return err
		})
		if err != nil {
			inc.MovimientosSinAnular = append(inc.MovimientosSinAnular, m.ID)
			if m.Estado == model.MovimientoCompletado {
				inc.Pendientes[m.ProductoID] += m.Cantidad
			}
			inc.Compensacion = err
			continue
		}
		if m.Estado == model.MovimientoCompletado {
			log.Warn().Str("referencia", referencia).Str("producto_id", m.ProductoID.String()).
				Int("cantidad", m.Cantidad).Msg("liquidacion: stock compensated")
		}
		m.Estado = model.MovimientoAnulado
	}

	if len(inc.MovimientosSinAnular) == 0 {
		return nil
	}

	log.Error().Err(inc.Compensacion).
		Str("referencia", referencia).
		AnErr("causa", causa).
		Interface("pendientes", inc.Pendientes).
		Interface("movimientos_sin_anular", inc.MovimientosSinAnular).
		Msg("liquidacion: compensation failed, settlement left half applied")
	if l.incidentes != nil {
		l.incidentes.ReportarInconsistencia(cctx, inc)
	}
	return inc
}

// sinDesenlace reports whether a failed settlement may still be finished by
// retrying it: it ran out of time, or its compensation did not complete.
func sinDesenlace(err error) bool {
	return errors.Is(err, ErrInconsistencia) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// incierto maps a deadline hit during settlement to ErrResultadoIncierto.
func incierto(err error) error {
	if err == nil || errors.Is(err, ErrInconsistencia) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrResultadoIncierto, err)
	}
	return err
}

// generarCodigo returns a timestamp-derived code with a random suffix, e.g.
// CMD-20261019-213005-7f3a9c.
func generarCodigo(prefijo string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefijo, now.UTC().Format("20060102-150405"), uuid.NewString()[:6])
}
