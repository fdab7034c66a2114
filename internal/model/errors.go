package model

import (
	"errors"
	"fmt"
)

// ErrValidacion is wrapped by every constructor error in this package so that
// callers can map them to a single 400 response.
var ErrValidacion = errors.New("validacion")

func invalido(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidacion, fmt.Sprintf(format, args...))
}
