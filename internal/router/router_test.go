package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"barpos/internal/config"
	"barpos/internal/dto"
	"barpos/internal/infra"
	"barpos/internal/lock"
	"barpos/internal/middleware"
	"barpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "router-test"

type impresoraStub struct {
	mu      sync.Mutex
	recibos []dto.ReciboPayload
}

func (s *impresoraStub) Imprimir(_ context.Context, r dto.ReciboPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recibos = append(s.recibos, r)
	return nil
}

type incidentesStub struct{}

func (incidentesStub) ReportarInconsistencia(context.Context, *service.InconsistenciaError) {}

type app struct {
	t         *testing.T
	engine    *gin.Engine
	impresora *impresoraStub
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, infra.Migrate(db))

	imp := &impresoraStub{}
	cfg := &config.Config{Env: "test", JWTSecret: secret}
	svcs := NewServices(db, lock.NewKeyedMutex(), imp, incidentesStub{}, service.OpcionesPorDefecto())
	return &app{t: t, engine: New(cfg, svcs, Probes{}), impresora: imp}
}

func (a *app) token(rol, user string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		Username: user,
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(a.t, err)
	return tok
}

func (a *app) call(rol, method, path, body string, out any) int {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token(rol, rol+"-1"))
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestFlujoCompleto(t *testing.T) {
	a := newApp(t)
	const (
		admin = middleware.RolAdministrador
		mozo  = middleware.RolMozo
		caja  = middleware.RolCajero
	)

	var prod dto.ProductoResponse
	require.Equal(t, http.StatusCreated, a.call(admin, http.MethodPost, "/v1/productos",
		`{"codigo_barras":"7790001","nombre":"Cerveza","categoria":"bebidas","precio_costo":"4","precio_venta":"10","stock_inicial":5,"stock_minimo":1}`, &prod))
	assert.Equal(t, 5, prod.StockActual)

	var mesa dto.MesaResponse
	require.Equal(t, http.StatusCreated, a.call(admin, http.MethodPost, "/v1/mesas", `{"numero":1,"capacidad":4}`, &mesa))

	var cmd dto.ComandaResponse
	require.Equal(t, http.StatusCreated, a.call(mozo, http.MethodPost, "/v1/comandas", `{"mesa_id":"`+mesa.ID+`"}`, &cmd))
	assert.Equal(t, http.StatusConflict, a.call(mozo, http.MethodPost, "/v1/comandas", `{"mesa_id":"`+mesa.ID+`"}`, nil))

	require.Equal(t, http.StatusOK, a.call(mozo, http.MethodPost, "/v1/comandas/"+cmd.ID+"/items",
		`{"producto_id":"`+prod.ID+`","cantidad":2}`, &cmd))
	assert.Equal(t, "20", cmd.Total.String())

	// mozos can't close or discount
	assert.Equal(t, http.StatusForbidden, a.call(mozo, http.MethodPost, "/v1/comandas/"+cmd.ID+"/cerrar", `{"metodo_pago":"efectivo"}`, nil))

	require.Equal(t, http.StatusOK, a.call(caja, http.MethodPost, "/v1/comandas/"+cmd.ID+"/cerrar",
		`{"metodo_pago":"efectivo","clave":"cierre-1"}`, &cmd))
	assert.Equal(t, "cerrada", cmd.Estado)
	require.Equal(t, http.StatusOK, a.call(caja, http.MethodPost, "/v1/comandas/"+cmd.ID+"/cerrar",
		`{"metodo_pago":"efectivo","clave":"cierre-1"}`, &cmd))

	require.Equal(t, http.StatusOK, a.call(caja, http.MethodGet, "/v1/productos/"+prod.ID, "", &prod))
	assert.Equal(t, 3, prod.StockActual)

	var mesas []dto.MesaResponse
	require.Equal(t, http.StatusOK, a.call(mozo, http.MethodGet, "/v1/mesas", "", &mesas))
	require.Len(t, mesas, 1)
	assert.Equal(t, "libre", mesas[0].Estado)

	assert.Equal(t, http.StatusConflict, a.call(caja, http.MethodPost, "/v1/ventas",
		`{"codigo":"V-1","lineas":[{"producto_id":"`+prod.ID+`","cantidad":4}],"metodo_pago":"efectivo"}`, nil))

	var venta dto.VentaResponse
	require.Equal(t, http.StatusCreated, a.call(caja, http.MethodPost, "/v1/ventas",
		`{"codigo":"V-2","lineas":[{"producto_id":"`+prod.ID+`","cantidad":3}],"metodo_pago":"debito"}`, &venta))
	assert.Equal(t, "finalizada", venta.Estado)

	var repetida dto.VentaResponse
	require.Equal(t, http.StatusCreated, a.call(caja, http.MethodPost, "/v1/ventas",
		`{"codigo":"V-2","lineas":[{"producto_id":"`+prod.ID+`","cantidad":3}],"metodo_pago":"debito"}`, &repetida))
	assert.Equal(t, venta.ID, repetida.ID)

	assert.Equal(t, http.StatusForbidden, a.call(mozo, http.MethodPost, "/v1/ventas", `{}`, nil))

	require.Equal(t, http.StatusOK, a.call(caja, http.MethodGet, "/v1/productos/"+prod.ID, "", &prod))
	assert.Equal(t, 0, prod.StockActual)

	var conc dto.ConciliacionResponse
	require.Equal(t, http.StatusOK, a.call(admin, http.MethodGet, "/v1/inventario/conciliacion", "", &conc))
	assert.Empty(t, conc.Discrepancias)

	var alertas []dto.AlertaStockResponse
	require.Equal(t, http.StatusOK, a.call(admin, http.MethodGet, "/v1/inventario/alertas", "", &alertas))
	assert.Len(t, alertas, 1)

	var movs dto.MovimientoListResponse
	require.Equal(t, http.StatusOK, a.call(admin, http.MethodGet, "/v1/inventario/movimientos?producto_id="+prod.ID, "", &movs))
	assert.EqualValues(t, 3, movs.Total)
	for _, m := range movs.Data {
		if m.Motivo == "venta" {
			path := "/v1/inventario/movimientos/" + m.ID + "/revertir"
			assert.Equal(t, http.StatusForbidden, a.call(mozo, http.MethodPost, path, "", nil))
			assert.Equal(t, http.StatusConflict, a.call(admin, http.MethodPost, path, "", nil))
			break
		}
	}
	assert.Equal(t, http.StatusNotFound, a.call(admin, http.MethodPost, "/v1/inventario/movimientos/"+uuid.NewString()+"/revertir", "", nil))

	a.impresora.mu.Lock()
	assert.Len(t, a.impresora.recibos, 2)
	a.impresora.mu.Unlock()
}

func TestSinToken(t *testing.T) {
	a := newApp(t)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/mesas", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func decimalFromInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
