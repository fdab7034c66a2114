package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"barpos/internal/dto"
	"barpos/internal/lock"
	"barpos/internal/model"
	"barpos/internal/repository"
	"barpos/internal/retry"
	"barpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errTransitorio = errors.New("conexion con la base perdida")

// ── In-memory ProductoRepository stub ─────────────────────────────────────────

type stubProductoRepo struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto
	// fallas injects an error on DescontarStock / IncrementarStock for a product.
	fallaDescontar   map[uuid.UUID]error
	fallaIncrementar map[uuid.UUID]error
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{
		productos:        make(map[uuid.UUID]*model.Producto),
		fallaDescontar:   make(map[uuid.UUID]error),
		fallaIncrementar: make(map[uuid.UUID]error),
	}
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range r.productos {
		if existing.CodigoBarras == p.CodigoBarras {
			return repository.ErrDuplicado
		}
	}
	cp := *p
	r.productos[p.ID] = &cp
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	all, _ := r.ListAll(context.Background())
	return all, int64(len(all)), nil
}

func (r *stubProductoRepo) ListAll(_ context.Context) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Producto, 0, len(r.productos))
	for _, p := range r.productos {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *stubProductoRepo) ListBajoStock(_ context.Context) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Producto
	for _, p := range r.productos {
		if p.Activo && p.StockActual <= p.StockMinimo {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductoRepo) DescontarStock(_ context.Context, id uuid.UUID, n int) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fallaDescontar[id]; err != nil {
		return nil, err
	}
	p, ok := r.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.StockActual < n {
		cp := *p
		return &cp, repository.ErrStockInsuficiente
	}
	p.StockActual -= n
	return nil, nil
}

func (r *stubProductoRepo) IncrementarStock(_ context.Context, id uuid.UUID, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fallaIncrementar[id]; err != nil {
		return err
	}
	p, ok := r.productos[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.StockActual += n
	return nil
}

func (r *stubProductoRepo) stock(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.productos[id].StockActual
}

func (r *stubProductoRepo) setFallaDescontar(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallaDescontar[id] = err
}

func (r *stubProductoRepo) setFallaIncrementar(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallaIncrementar[id] = err
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

// ── In-memory MovimientoStockRepository stub ──────────────────────────────────

// stubMovimientoRepo applies stock through the product stub, so the product
// fault injection also hits Aplicar and Anular.
type stubMovimientoRepo struct {
	mu        sync.Mutex
	productos *stubProductoRepo
	movs      []*model.MovimientoStock
	byID      map[uuid.UUID]*model.MovimientoStock
	// falla rejects an insert before it is stored.
	falla func(m *model.MovimientoStock) error
	// trasCrear and trasAplicar run after the write is stored; a non-nil
	// result is returned to the caller as if the response had been lost.
	trasCrear   func(m *model.MovimientoStock) error
	trasAplicar func(m *model.MovimientoStock) error
	// fallaAnular makes every Anular fail while set.
	fallaAnular error
}

func newStubMovimientoRepo(productos *stubProductoRepo) *stubMovimientoRepo {
	return &stubMovimientoRepo{productos: productos, byID: make(map[uuid.UUID]*model.MovimientoStock)}
}

func (r *stubMovimientoRepo) Create(_ context.Context, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.falla != nil {
		if err := r.falla(m); err != nil {
			return err
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, ok := r.byID[m.ID]; ok {
		return repository.ErrDuplicado
	}
	cp := *m
	r.movs = append(r.movs, &cp)
	r.byID[m.ID] = &cp
	if r.trasCrear != nil {
		return r.trasCrear(&cp)
	}
	return nil
}

func (r *stubMovimientoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MovimientoStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *stubMovimientoRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movs {
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Referencia != "" && m.Referencia != f.Referencia {
			continue
		}
		if f.Tipo != "" && string(m.Tipo) != f.Tipo {
			continue
		}
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovimientoRepo) Aplicar(ctx context.Context, id uuid.UUID) (*model.MovimientoStock, *model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if m.Estado == model.MovimientoPendiente {
		if m.Tipo == model.MovimientoSalida {
			if p, err := r.productos.DescontarStock(ctx, m.ProductoID, m.Cantidad); err != nil {
				return nil, p, err
			}
		} else if err := r.productos.IncrementarStock(ctx, m.ProductoID, m.Cantidad); err != nil {
			return nil, nil, err
		}
		m.Estado = model.MovimientoCompletado
		if r.trasAplicar != nil {
			if err := r.trasAplicar(m); err != nil {
				return nil, nil, err
			}
		}
	}
	cp := *m
	return &cp, nil, nil
}

func (r *stubMovimientoRepo) Anular(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallaAnular != nil {
		return r.fallaAnular
	}
	m, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Estado == model.MovimientoCompletado {
		var err error
		if m.Tipo == model.MovimientoSalida {
			err = r.productos.IncrementarStock(ctx, m.ProductoID, m.Cantidad)
		} else {
			_, err = r.productos.DescontarStock(ctx, m.ProductoID, m.Cantidad)
		}
		if err != nil {
			return err
		}
	}
	m.Estado = model.MovimientoAnulado
	return nil
}

func (r *stubMovimientoRepo) SaldoCompletado(_ context.Context, productoID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saldo := 0
	for _, m := range r.movs {
		if m.ProductoID == productoID && m.Estado == model.MovimientoCompletado {
			saldo += m.Delta()
		}
	}
	return saldo, nil
}

func (r *stubMovimientoRepo) setTrasCrear(fn func(m *model.MovimientoStock) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trasCrear = fn
}

func (r *stubMovimientoRepo) setTrasAplicar(fn func(m *model.MovimientoStock) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trasAplicar = fn
}

func (r *stubMovimientoRepo) setFallaAnular(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallaAnular = err
}

// porReferencia counts the movements of ref by estado.
func (r *stubMovimientoRepo) porReferencia(ref string) map[model.EstadoMovimiento]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.EstadoMovimiento]int{}
	for _, m := range r.movs {
		if m.Referencia == ref {
			out[m.Estado]++
		}
	}
	return out
}

func (r *stubMovimientoRepo) setFalla(fn func(m *model.MovimientoStock) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.falla = fn
}

// completados returns the completed movements, optionally for one product.
func (r *stubMovimientoRepo) completados(productoID *uuid.UUID) []model.MovimientoStock {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movs {
		if m.Estado != model.MovimientoCompletado {
			continue
		}
		if productoID != nil && m.ProductoID != *productoID {
			continue
		}
		out = append(out, *m)
	}
	return out
}

var _ repository.MovimientoStockRepository = (*stubMovimientoRepo)(nil)

// ── In-memory MesaRepository stub ─────────────────────────────────────────────

type stubMesaRepo struct {
	mu    sync.Mutex
	mesas map[uuid.UUID]*model.Mesa
}

func newStubMesaRepo() *stubMesaRepo {
	return &stubMesaRepo{mesas: make(map[uuid.UUID]*model.Mesa)}
}

func (r *stubMesaRepo) Create(_ context.Context, m *model.Mesa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	for _, existing := range r.mesas {
		if existing.Numero == m.Numero {
			return repository.ErrDuplicado
		}
	}
	cp := *m
	r.mesas[m.ID] = &cp
	return nil
}

func (r *stubMesaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Mesa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mesas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *stubMesaRepo) List(_ context.Context) ([]model.Mesa, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Mesa, 0, len(r.mesas))
	for _, m := range r.mesas {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

func (r *stubMesaRepo) Transicion(_ context.Context, id uuid.UUID, hasta model.EstadoMesa, desde ...model.EstadoMesa) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mesas[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, d := range desde {
		if m.Activo && m.Estado == d {
			m.Estado = hasta
			return nil
		}
	}
	return repository.ErrTransicion
}

func (r *stubMesaRepo) estado(id uuid.UUID) model.EstadoMesa {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mesas[id].Estado
}

var _ repository.MesaRepository = (*stubMesaRepo)(nil)

// ── In-memory ComandaRepository stub ──────────────────────────────────────────

type stubComandaRepo struct {
	mu       sync.Mutex
	comandas map[uuid.UUID]*model.Comanda
	items    map[uuid.UUID][]model.ComandaItem
	// fallaCerrar makes the next n Cerrar calls fail.
	fallaCerrar int
	// crearSinAck stores the next tab and then reports errCrear.
	crearSinAck bool
	errCrear    error
	// fallaFind makes the next n FindByID calls fail.
	fallaFind int
}

func newStubComandaRepo() *stubComandaRepo {
	return &stubComandaRepo{
		comandas: make(map[uuid.UUID]*model.Comanda),
		items:    make(map[uuid.UUID][]model.ComandaItem),
	}
}

func (r *stubComandaRepo) Create(_ context.Context, c *model.Comanda) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for _, existing := range r.comandas {
		if existing.Codigo == c.Codigo {
			return repository.ErrDuplicado
		}
	}
	cp := *c
	cp.Items = nil
	r.comandas[c.ID] = &cp
	if r.crearSinAck {
		r.crearSinAck = false
		return r.errCrear
	}
	return nil
}

func (r *stubComandaRepo) load(id uuid.UUID) (*model.Comanda, error) {
	c, ok := r.comandas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Items = append([]model.ComandaItem(nil), r.items[id]...)
	return &cp, nil
}

func (r *stubComandaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Comanda, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallaFind > 0 {
		r.fallaFind--
		return nil, errTransitorio
	}
	return r.load(id)
}

func (r *stubComandaRepo) FindAbiertaPorMesa(_ context.Context, mesaID uuid.UUID) (*model.Comanda, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.comandas {
		if c.MesaID == mesaID && c.Estado == model.ComandaAbierta {
			return r.load(id)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubComandaRepo) List(_ context.Context, f dto.ComandaFilter) ([]model.Comanda, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Comanda
	for id, c := range r.comandas {
		if f.Estado != "" && string(c.Estado) != f.Estado {
			continue
		}
		loaded, _ := r.load(id)
		out = append(out, *loaded)
	}
	return out, nil
}

func (r *stubComandaRepo) AddItem(_ context.Context, it *model.ComandaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items[it.ComandaID] {
		if existing.ID == it.ID {
			return repository.ErrDuplicado
		}
	}
	r.items[it.ComandaID] = append(r.items[it.ComandaID], *it)
	return nil
}

func (r *stubComandaRepo) DeleteItem(_ context.Context, comandaID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[comandaID]
	for i := range items {
		if items[i].ID == itemID {
			r.items[comandaID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubComandaRepo) guarded(c *model.Comanda, apply func(stored *model.Comanda)) error {
	stored, ok := r.comandas[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Estado != model.ComandaAbierta {
		return repository.ErrTransicion
	}
	if stored.Version != c.Version {
		return repository.ErrVersion
	}
	apply(stored)
	stored.Version++
	c.Version++
	return nil
}

func (r *stubComandaRepo) UpdateTotales(_ context.Context, c *model.Comanda) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guarded(c, func(s *model.Comanda) {
		s.Subtotal, s.Descuento, s.Total = c.Subtotal, c.Descuento, c.Total
	})
}

func (r *stubComandaRepo) Cerrar(_ context.Context, c *model.Comanda, metodo string, clave *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallaCerrar > 0 {
		r.fallaCerrar--
		return errTransitorio
	}
	err := r.guarded(c, func(s *model.Comanda) {
		s.Estado = model.ComandaCerrada
		s.MetodoPago = &metodo
		s.ClaveCierre = clave
		s.CerradaEn = &at
	})
	if err != nil {
		return err
	}
	c.Estado = model.ComandaCerrada
	c.MetodoPago = &metodo
	c.ClaveCierre = clave
	c.CerradaEn = &at
	return nil
}

func (r *stubComandaRepo) Cancelar(_ context.Context, c *model.Comanda, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.guarded(c, func(s *model.Comanda) {
		s.Estado = model.ComandaCancelada
		s.CerradaEn = &at
	})
	if err != nil {
		return err
	}
	c.Estado = model.ComandaCancelada
	c.CerradaEn = &at
	return nil
}

func (r *stubComandaRepo) get(id uuid.UUID) *model.Comanda {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, _ := r.load(id)
	return c
}

var _ repository.ComandaRepository = (*stubComandaRepo)(nil)

// ── In-memory VentaRepository stub ────────────────────────────────────────────

type stubVentaRepo struct {
	mu     sync.Mutex
	ventas map[uuid.UUID]*model.Venta
	// fallaTransicion makes the next n Transicion calls fail.
	fallaTransicion int
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *stubVentaRepo) Create(_ context.Context, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	for _, existing := range r.ventas {
		if existing.Codigo == v.Codigo {
			return repository.ErrDuplicado
		}
	}
	v.CreatedAt = time.Now()
	cp := *v
	cp.Items = append([]model.VentaItem(nil), v.Items...)
	r.ventas[v.ID] = &cp
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVentaRepo) FindByCodigo(_ context.Context, codigo string) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ventas {
		if v.Codigo == codigo {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubVentaRepo) Transicion(_ context.Context, id uuid.UUID, desde, hasta model.EstadoVenta, motivo *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallaTransicion > 0 {
		r.fallaTransicion--
		return errTransitorio
	}
	v, ok := r.ventas[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.Estado == hasta {
		return nil
	}
	if v.Estado != desde {
		return repository.ErrTransicion
	}
	v.Estado = hasta
	v.MotivoFallo = motivo
	return nil
}

func (r *stubVentaRepo) SetImpresionError(_ context.Context, id uuid.UUID, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.ventas[id]; ok {
		v.ImpresionError = &msg
	}
	return nil
}

func (r *stubVentaRepo) List(_ context.Context, f dto.VentaFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if f.Estado != "" && f.Estado != "all" && string(v.Estado) != f.Estado {
			continue
		}
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) porCodigo(codigo string) *model.Venta {
	v, _ := r.FindByCodigo(context.Background(), codigo)
	return v
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// ── Collaborators ─────────────────────────────────────────────────────────────

type stubImpresora struct {
	mu      sync.Mutex
	recibos []dto.ReciboPayload
	err     error
}

func (p *stubImpresora) Imprimir(_ context.Context, r dto.ReciboPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recibos = append(p.recibos, r)
	return nil
}

type stubIncidentes struct {
	mu         sync.Mutex
	reportados []*service.InconsistenciaError
}

func (s *stubIncidentes) ReportarInconsistencia(_ context.Context, inc *service.InconsistenciaError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportados = append(s.reportados, inc)
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	productos   *stubProductoRepo
	movimientos *stubMovimientoRepo
	mesasRepo   *stubMesaRepo
	comandas    *stubComandaRepo
	ventasRepo  *stubVentaRepo
	impresora   *stubImpresora
	incidentes  *stubIncidentes

	mesas   service.MesaService
	comanda service.ComandaService
	ventas  service.VentaService
	ledger  service.LedgerService
}

func testOpciones() service.Opciones {
	return service.Opciones{
		TimeoutLiquidacion: 5 * time.Second,
		Reintentos:         retry.Policy{Attempts: 3, Base: time.Millisecond},
	}
}

func newFixture(t *testing.T, opts ...func(*service.Opciones)) *fixture {
	t.Helper()
	o := testOpciones()
	for _, fn := range opts {
		fn(&o)
	}
	f := &fixture{
		productos:  newStubProductoRepo(),
		mesasRepo:  newStubMesaRepo(),
		comandas:   newStubComandaRepo(),
		ventasRepo: newStubVentaRepo(),
		impresora:  &stubImpresora{},
		incidentes: &stubIncidentes{},
	}
	f.movimientos = newStubMovimientoRepo(f.productos)
	locker := lock.NewKeyedMutex()
	f.mesas = service.NewMesaService(f.mesasRepo)
	f.ledger = service.NewLedgerService(f.productos, f.movimientos, f.incidentes, o)
	f.comanda = service.NewComandaService(f.comandas, f.productos, f.movimientos, f.mesas, locker, f.impresora, f.incidentes, o)
	f.ventas = service.NewVentaService(f.ventasRepo, f.productos, f.movimientos, locker, f.impresora, f.incidentes, o)
	return f
}

// seedProducto creates an active product whose initial stock is recorded
// as an entrada movement, so the ledger invariant holds from the start.
func (f *fixture) seedProducto(t *testing.T, nombre, precio string, stock int) *model.Producto {
	t.Helper()
	p := &model.Producto{
		ID:           uuid.New(),
		CodigoBarras: uuid.NewString()[:12],
		Nombre:       nombre,
		Categoria:    "bebidas",
		PrecioCosto:  decimal.RequireFromString(precio).Div(decimal.NewFromInt(2)),
		PrecioVenta:  decimal.RequireFromString(precio),
		StockMinimo:  2,
		UnidadMedida: "unidad",
		Activo:       true,
	}
	require.NoError(t, f.productos.Create(context.Background(), p))
	if stock > 0 {
		_, err := f.ledger.RegistrarManual(context.Background(), "seed", dto.RegistrarMovimientoRequest{
			ProductoID: p.ID.String(),
			Tipo:       "entrada",
			Cantidad:   stock,
			Motivo:     model.MotivoInventarioInicial,
		})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) seedMesa(t *testing.T, numero int) *model.Mesa {
	t.Helper()
	m := &model.Mesa{ID: uuid.New(), Numero: numero, Capacidad: 4, Estado: model.MesaLibre, Activo: true}
	require.NoError(t, f.mesasRepo.Create(context.Background(), m))
	return m
}

// ledgerCuadra asserts stock == Σ completed movements for every product.
func (f *fixture) ledgerCuadra(t *testing.T) {
	t.Helper()
	resp, err := f.ledger.ConciliarTodo(context.Background())
	require.NoError(t, err)
	require.Empty(t, resp.Discrepancias, "stock and ledger diverged")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func repositoryFilterRef(ref string) repository.MovimientoStockFilter {
	return repository.MovimientoStockFilter{Referencia: ref}
}
