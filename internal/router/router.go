package router

import (
	"time"

	"barpos/internal/config"
	"barpos/internal/handler"
	"barpos/internal/lock"
	"barpos/internal/middleware"
	"barpos/internal/repository"
	"barpos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services is the application layer. cmd/server also hands Ledger to the
// reconciliation cron.
type Services struct {
	Productos service.ProductoService
	Ledger    service.LedgerService
	Mesas     service.MesaService
	Comandas  service.ComandaService
	Ventas    service.VentaService
}

// NewServices wires Service ← Repository ← DB.
func NewServices(db *gorm.DB, locker lock.Locker, impresora service.Impresora, incidentes service.Incidentes, opts service.Opciones) *Services {
	productoRepo := repository.NewProductoRepository(db)
	movimientoRepo := repository.NewMovimientoStockRepository(db)
	mesaRepo := repository.NewMesaRepository(db)
	comandaRepo := repository.NewComandaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	ledgerSvc := service.NewLedgerService(productoRepo, movimientoRepo, incidentes, opts)
	mesaSvc := service.NewMesaService(mesaRepo)
	return &Services{
		Productos: service.NewProductoService(productoRepo, ledgerSvc),
		Ledger:    ledgerSvc,
		Mesas:     mesaSvc,
		Comandas:  service.NewComandaService(comandaRepo, productoRepo, movimientoRepo, mesaSvc, locker, impresora, incidentes, opts),
		Ventas:    service.NewVentaService(ventaRepo, productoRepo, movimientoRepo, locker, impresora, incidentes, opts),
	}
}

// Probes are the unauthenticated and operator endpoints that depend on
// infrastructure. Nil entries are not routed.
type Probes struct {
	Health     gin.HandlerFunc
	Incidentes gin.HandlerFunc
}

// New returns a configured Gin engine.
func New(cfg *config.Config, svcs *Services, probes Probes) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// order matters: the request id must exist before anything logs
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	productosH := handler.NewProductosHandler(svcs.Productos, svcs.Ledger)
	inventarioH := handler.NewInventarioHandler(svcs.Ledger)
	mesasH := handler.NewMesasHandler(svcs.Mesas)
	comandasH := handler.NewComandasHandler(svcs.Comandas)
	ventasH := handler.NewVentasHandler(svcs.Ventas)

	if probes.Health != nil {
		r.GET("/health", probes.Health)
	}

	const (
		mozo  = middleware.RolMozo
		caja  = middleware.RolCajero
		sup   = middleware.RolSupervisor
		admin = middleware.RolAdministrador
	)
	todos := middleware.RequireRole(mozo, caja, sup, admin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/ventas", middleware.RequireRole(caja, sup, admin), ventasH.Checkout)
		v1.GET("/ventas", middleware.RequireRole(caja, sup, admin), ventasH.ListarVentas)
		v1.GET("/ventas/:codigo", middleware.RequireRole(caja, sup, admin), ventasH.ObtenerPorCodigo)

		cmd := v1.Group("/comandas", todos)
		{
			cmd.POST("", comandasH.Abrir)
			cmd.GET("", comandasH.Listar)
			cmd.GET("/:id", comandasH.Obtener)
			cmd.POST("/:id/items", comandasH.AgregarItem)
			cmd.DELETE("/:id/items/:item_id", comandasH.AnularItem)
			cmd.PUT("/:id/descuento", middleware.RequireRole(sup, admin), comandasH.AplicarDescuento)
			cmd.POST("/:id/cerrar", middleware.RequireRole(caja, sup, admin), comandasH.Cerrar)
			cmd.POST("/:id/cancelar", middleware.RequireRole(sup, admin), comandasH.Cancelar)
		}

		v1.GET("/mesas", todos, mesasH.Listar)
		v1.POST("/mesas", middleware.RequireRole(admin), mesasH.Crear)
		v1.PATCH("/mesas/:id/estado", middleware.RequireRole(caja, sup, admin), mesasH.CambiarEstado)

		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.ObtenerPorID)
		v1.GET("/productos/:id/movimientos", middleware.RequireRole(sup, admin), productosH.Movimientos)
		v1.POST("/productos", middleware.RequireRole(admin), productosH.Crear)

		inv := v1.Group("/inventario", middleware.RequireRole(sup, admin))
		{
			inv.GET("/alertas", inventarioH.ObtenerAlertas)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
			inv.POST("/movimientos", inventarioH.RegistrarMovimiento)
			inv.POST("/movimientos/:id/revertir", middleware.RequireRole(admin), inventarioH.RevertirMovimiento)
			inv.GET("/conciliacion", inventarioH.Conciliar)
		}

		if probes.Incidentes != nil {
			v1.GET("/incidentes", middleware.RequireRole(admin), probes.Incidentes)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
