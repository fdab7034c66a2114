package handler

import (
	"errors"
	"net/http"
	"reflect"

	"barpos/internal/apierror"
	"barpos/internal/middleware"
	"barpos/internal/repository"
	"barpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) string {
	return middleware.Actor(middleware.GetClaims(c))
}

// respondError maps service errors onto HTTP status codes. Anything it does
// not recognise is a 500 with a generic message; the cause is attached to the
// context so ErrorHandler logs it.
func respondError(c *gin.Context, err error) {
	var (
		inc   *service.InconsistenciaError
		stock *service.StockInsuficienteError
	)
	switch {
	case errors.As(err, &inc):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, &apierror.APIError{
			Code:   apierror.CodeInconsistencia,
			Detail: "La operacion fallo y el inventario quedo inconsistente; se notifico a un operador",
			Meta:   gin.H{"referencia": inc.Referencia},
		})
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, &apierror.APIError{
			Code:   apierror.CodeStockInsuficiente,
			Detail: stock.Error(),
			Meta: gin.H{
				"producto_id": stock.ProductoID.String(),
				"solicitado":  stock.Solicitado,
				"disponible":  stock.Disponible,
			},
		})
	case errors.Is(err, service.ErrStockInsuficiente):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeStockInsuficiente, err.Error()))

	case errors.Is(err, service.ErrValidacion),
		errors.Is(err, service.ErrCarritoVacio),
		errors.Is(err, service.ErrComandaVacia),
		errors.Is(err, service.ErrDescuentoExcedido),
		errors.Is(err, service.ErrProductoNoDisponible):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(apierror.CodeValidacion, err.Error()))

	case errors.Is(err, service.ErrComandaNoEncontrada),
		errors.Is(err, service.ErrItemNoEncontrado),
		errors.Is(err, service.ErrMesaNoEncontrada),
		errors.Is(err, service.ErrProductoNoEncontrado),
		errors.Is(err, service.ErrVentaNoEncontrada),
		errors.Is(err, service.ErrMovimientoNoEncontrado),
		errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNoEncontrado, err.Error()))

	case errors.Is(err, service.ErrComandaNoAbierta),
		errors.Is(err, service.ErrMesaNoDisponible),
		errors.Is(err, service.ErrTransicionMesa),
		errors.Is(err, service.ErrMovimientoNoRevertible),
		errors.Is(err, service.ErrVentaFallida):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeEstadoInvalido, err.Error()))

	case errors.Is(err, service.ErrConflicto),
		errors.Is(err, service.ErrCodigoDuplicado):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeConflicto, err.Error()))

	case errors.Is(err, service.ErrOperacionEnCurso):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeOperacionEnCurso, err.Error()))

	case errors.Is(err, service.ErrResultadoIncierto):
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, apierror.WithCode(apierror.CodeResultadoIncierto,
			"No se pudo confirmar el resultado; consulte por codigo antes de reintentar"))

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeInterno, "Error interno del servidor"))
	}
}
