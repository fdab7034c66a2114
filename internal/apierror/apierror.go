// Package apierror provides the JSON error envelope for the API.
// All errors returned to clients go through this package so internal details
// (DB errors, stack traces) never leak.
package apierror

// Machine-readable codes. Clients branch on Code, never on Detail.
const (
	CodeValidacion            = "VALIDACION"
	CodeNoEncontrado          = "NO_ENCONTRADO"
	CodeStockInsuficiente     = "STOCK_INSUFICIENTE"
	CodeConflicto             = "CONFLICTO"
	CodeEstadoInvalido        = "ESTADO_INVALIDO"
	CodeOperacionEnCurso      = "OPERACION_EN_CURSO"
	CodeResultadoIncierto     = "RESULTADO_INCIERTO"
	CodeInconsistencia        = "INCONSISTENCIA"
	CodeNoAutorizado          = "NO_AUTORIZADO"
	CodeInterno               = "INTERNO"
	CodeDemasiadasSolicitudes = "DEMASIADAS_SOLICITUDES"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code   string         `json:"code,omitempty"`
	Detail string         `json:"detail"`
	Meta   map[string]any `json:"meta,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidacion, Detail: "Error de validacion", Fields: fields}
}
