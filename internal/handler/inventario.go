package handler

import (
	"net/http"
	"time"

	"barpos/internal/dto"
	"barpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventarioHandler struct{ ledger service.LedgerService }

func NewInventarioHandler(ledger service.LedgerService) *InventarioHandler {
	return &InventarioHandler{ledger: ledger}
}

// RegistrarMovimiento godoc
// @Summary      Registrar un movimiento manual de stock
// @Description  Compras, roturas, degustaciones y ajustes. Las ventas nunca pasan por aqui.
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarMovimientoRequest true "Movimiento"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/inventario/movimientos [post]
func (h *InventarioHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.RegistrarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ledger.RegistrarManual(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.ledger.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RevertirMovimiento godoc
// @Summary      Revertir un movimiento manual
// @Description  Registra el movimiento contrario como ajuste. Repetirlo no vuelve a mover stock.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "ID del movimiento"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/inventario/movimientos/{id}/revertir [post]
func (h *InventarioHandler) RevertirMovimiento(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ledger.Revertir(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventarioHandler) ObtenerAlertas(c *gin.Context) {
	resp, err := h.ledger.ObtenerAlertas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Conciliar godoc
// @Summary      Conciliar stock contra el libro de movimientos
// @Description  Sin producto_id revisa todo el catalogo.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string false "UUID del producto"
// @Success      200  {object} dto.ConciliacionResponse
// @Router       /v1/inventario/conciliacion [get]
func (h *InventarioHandler) Conciliar(c *gin.Context) {
	if c.Query("producto_id") == "" {
		resp, err := h.ledger.ConciliarTodo(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	var q struct {
		ProductoID string `form:"producto_id" validate:"required,uuid"`
	}
	if !bindQuery(c, &q) {
		return
	}
	id := uuid.MustParse(q.ProductoID)
	disc, err := h.ledger.Conciliar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.ConciliacionResponse{
		Revisados:     1,
		Discrepancias: []dto.DiscrepanciaResponse{},
		EjecutadoEn:   time.Now().UTC().Format(time.RFC3339),
	}
	if disc != nil {
		resp.Discrepancias = append(resp.Discrepancias, *disc)
	}
	c.JSON(http.StatusOK, resp)
}
