package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("registro no encontrado")
	// ErrDuplicado is returned when a unique key (code or pre-assigned ID) already exists.
	ErrDuplicado = errors.New("registro duplicado")
	// ErrStockInsuficiente means the conditional decrement matched no row
	// because stock_actual was lower than the requested quantity.
	ErrStockInsuficiente = errors.New("stock insuficiente")
	// ErrTransicion means a conditional state update found the row in a
	// different state than required.
	ErrTransicion = errors.New("transicion de estado no permitida")
	// ErrVersion means the row was modified since it was read.
	ErrVersion = errors.New("version desactualizada")
	// ErrMovimientoEnCurso means a movement changed state while it was being
	// anulled. Retrying resolves it.
	ErrMovimientoEnCurso = errors.New("movimiento modificado concurrentemente")
)

// translate maps gorm errors onto the repository sentinels. It relies on
// gorm.Config{TranslateError: true}.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicado
	}
	return err
}
