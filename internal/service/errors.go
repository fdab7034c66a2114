package service

import (
	"errors"
	"fmt"
	"strings"

	"barpos/internal/model"

	"github.com/google/uuid"
)

// Validation and state errors. None of them leave side effects behind.
var (
	ErrValidacion             = model.ErrValidacion
	ErrCarritoVacio           = errors.New("el carrito está vacío")
	ErrCantidadInvalida       = fmt.Errorf("%w: la cantidad debe ser mayor a cero", model.ErrValidacion)
	ErrMetodoPagoInvalido     = fmt.Errorf("%w: método de pago no soportado", model.ErrValidacion)
	ErrComandaNoEncontrada    = errors.New("comanda no encontrada")
	ErrComandaNoAbierta       = errors.New("la comanda no está abierta")
	ErrComandaVacia           = errors.New("la comanda no tiene items")
	ErrItemNoEncontrado       = errors.New("item no encontrado en la comanda")
	ErrMesaNoEncontrada       = errors.New("mesa no encontrada")
	ErrMesaNoDisponible       = errors.New("la mesa no está disponible")
	ErrTransicionMesa         = errors.New("cambio de estado de mesa no permitido")
	ErrProductoNoEncontrado   = errors.New("producto no encontrado")
	ErrProductoNoDisponible   = errors.New("producto inactivo o inexistente")
	ErrDescuentoExcedido      = errors.New("el descuento supera el subtotal")
	ErrVentaNoEncontrada      = errors.New("venta no encontrada")
	ErrCodigoDuplicado        = errors.New("el código ya está en uso")
	ErrMovimientoNoEncontrado = errors.New("movimiento no encontrado")
	// ErrMovimientoNoRevertible is returned when reverting a sale movement or
	// one that is not completado.
	ErrMovimientoNoRevertible = errors.New("el movimiento no se puede revertir")
)

// Retryable errors.
var (
	ErrStockInsuficiente = errors.New("stock insuficiente")
	// ErrConflicto means a concurrent edit won the race; re-read and retry.
	ErrConflicto = errors.New("la comanda fue modificada concurrentemente")
	// ErrOperacionEnCurso is returned for a checkout whose code belongs to a
	// sale that is still pendiente.
	ErrOperacionEnCurso = errors.New("hay una operación en curso con el mismo código")
	// ErrResultadoIncierto means the settlement did not finish inside its
	// deadline. The caller must re-query by code before retrying.
	ErrResultadoIncierto = errors.New("resultado de la liquidación incierto")
)

var (
	// ErrVentaFallida is returned when a checkout is retried with the code of
	// a sale that already failed. A new code must be used.
	ErrVentaFallida   = errors.New("la venta con ese código falló; use un código nuevo")
	ErrInconsistencia = errors.New("inconsistencia de inventario")
)

// StockInsuficienteError carries the product and the quantities involved.
type StockInsuficienteError struct {
	ProductoID uuid.UUID
	Nombre     string
	Solicitado int
	Disponible int
}

func (e *StockInsuficienteError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %d, disponible %d",
		e.nombre(), e.Solicitado, e.Disponible)
}

func (e *StockInsuficienteError) nombre() string {
	if e.Nombre != "" {
		return e.Nombre
	}
	return e.ProductoID.String()
}

func (e *StockInsuficienteError) Is(target error) bool { return target == ErrStockInsuficiente }

// InconsistenciaError is fatal: a compensation could not be completed, so the
// settlement is left half applied. Stock still matches the ledger, but the
// units in Pendientes were charged for an operation that did not finish. It is
// logged and queued for operators; retrying the same close or checkout
// resumes the movements left behind.
type InconsistenciaError struct {
	Referencia string
	// Pendientes maps each product to the units that could not be restored.
	Pendientes map[uuid.UUID]int
	// MovimientosSinAnular lists ledger rows that should have been anulled.
	MovimientosSinAnular []uuid.UUID
	Causa                error
	Compensacion         error
}

func (e *InconsistenciaError) Error() string {
	ids := make([]string, 0, len(e.Pendientes))
	for id, n := range e.Pendientes {
		ids = append(ids, fmt.Sprintf("%s(%d)", id, n))
	}
	return fmt.Sprintf("inconsistencia en %s: compensación incompleta [%s], %d movimientos sin anular: %v",
		e.Referencia, strings.Join(ids, ", "), len(e.MovimientosSinAnular), e.Compensacion)
}

func (e *InconsistenciaError) Is(target error) bool { return target == ErrInconsistencia }

func (e *InconsistenciaError) Unwrap() error { return e.Causa }
