// cmd/seed: loads tables and a starter catalog into an empty database.
// Each product's initial stock is recorded as an inventario_inicial movement
// so stock and ledger agree from the start. Re-running skips what exists.
//
// Uso: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"barpos/internal/config"
	"barpos/internal/dto"
	"barpos/internal/infra"
	"barpos/internal/lock"
	"barpos/internal/router"
	"barpos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type noopImpresora struct{}

func (noopImpresora) Imprimir(context.Context, dto.ReciboPayload) error { return nil }

type logIncidentes struct{}

func (logIncidentes) ReportarInconsistencia(_ context.Context, inc *service.InconsistenciaError) {
	log.Error().Err(inc).Msg("seed: inconsistency")
}

var catalogo = []dto.CrearProductoRequest{
	{CodigoBarras: "7790070410", Nombre: "Cerveza rubia 473ml", Categoria: "cervezas", PrecioCosto: decimal.RequireFromString("900"), PrecioVenta: decimal.RequireFromString("2200"), StockInicial: 96, StockMinimo: 24},
	{CodigoBarras: "7790070427", Nombre: "Cerveza negra 473ml", Categoria: "cervezas", PrecioCosto: decimal.RequireFromString("950"), PrecioVenta: decimal.RequireFromString("2400"), StockInicial: 48, StockMinimo: 12},
	{CodigoBarras: "7791250001", Nombre: "Fernet 750ml", Categoria: "destilados", PrecioCosto: decimal.RequireFromString("8500"), PrecioVenta: decimal.RequireFromString("19000"), StockInicial: 12, StockMinimo: 3},
	{CodigoBarras: "7790895000", Nombre: "Gaseosa cola 500ml", Categoria: "sin_alcohol", PrecioCosto: decimal.RequireFromString("600"), PrecioVenta: decimal.RequireFromString("1500"), StockInicial: 72, StockMinimo: 24},
	{CodigoBarras: "7798113300", Nombre: "Agua mineral 500ml", Categoria: "sin_alcohol", PrecioCosto: decimal.RequireFromString("400"), PrecioVenta: decimal.RequireFromString("1100"), StockInicial: 72, StockMinimo: 24},
	{CodigoBarras: "2000000011", Nombre: "Papas fritas porcion", Categoria: "cocina", PrecioCosto: decimal.RequireFromString("1200"), PrecioVenta: decimal.RequireFromString("4500"), StockInicial: 40, StockMinimo: 10, UnidadMedida: "porcion"},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx := context.Background()
	svcs := router.NewServices(db, lock.NewKeyedMutex(), noopImpresora{}, logIncidentes{}, cfg.Opciones())

	for n := 1; n <= 12; n++ {
		capacidad := 4
		if n > 8 {
			capacidad = 2 // barra
		}
		_, err := svcs.Mesas.Crear(ctx, dto.CrearMesaRequest{Numero: n, Capacidad: capacidad})
		switch {
		case errors.Is(err, service.ErrCodigoDuplicado):
		case err != nil:
			log.Fatal().Err(err).Int("mesa", n).Msg("seed: mesa")
		}
	}

	for _, req := range catalogo {
		p, err := svcs.Productos.Crear(ctx, "seed", req)
		switch {
		case errors.Is(err, service.ErrCodigoDuplicado):
			log.Info().Str("codigo_barras", req.CodigoBarras).Msg("seed: producto ya existe")
		case err != nil:
			log.Fatal().Err(err).Str("producto", req.Nombre).Msg("seed: producto")
		default:
			log.Info().Str("producto", p.Nombre).Int("stock", p.StockActual).Msg("seed: producto creado")
		}
	}

	res, err := svcs.Ledger.ConciliarTodo(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("seed: conciliacion")
	}
	log.Info().Int("productos", res.Revisados).Int("discrepancias", len(res.Discrepancias)).Msg("seed: listo")
}
