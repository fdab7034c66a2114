package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"barpos/internal/dto"
	"barpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type printerStub struct {
	mu      sync.Mutex
	err     error
	llamado []string
}

func (p *printerStub) Imprimir(_ context.Context, r dto.ReciboPayload, pdfPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.llamado = append(p.llamado, r.Codigo+"|"+pdfPath)
	return p.err
}

func recibo(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(dto.ReciboPayload{
		Tipo:       "venta",
		Codigo:     "V-1",
		Items:      []dto.ReciboItem{{Nombre: "Agua", Cantidad: 1, PrecioUnitario: decimal.NewFromInt(2), Subtotal: decimal.NewFromInt(2)}},
		Subtotal:   decimal.NewFromInt(2),
		Total:      decimal.NewFromInt(2),
		MetodoPago: "efectivo",
		Actor:      "cajero",
	})
	require.NoError(t, err)
	return raw
}

func TestReciboWorker_Imprime(t *testing.T) {
	p := &printerStub{}
	w := NewReciboWorker(p, infra.NewCircuitBreaker(infra.DefaultCBConfig()), t.TempDir())

	require.NoError(t, w.Process(context.Background(), recibo(t)))
	require.Len(t, p.llamado, 1)
	assert.Contains(t, p.llamado[0], "recibo_venta_V-1.pdf")
}

func TestReciboWorker_FallaDeImpresoraSeReintenta(t *testing.T) {
	p := &printerStub{err: errors.New("sin papel")}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour})
	w := NewReciboWorker(p, cb, t.TempDir())

	assert.Error(t, w.Process(context.Background(), recibo(t)))
	assert.Error(t, w.Process(context.Background(), recibo(t)))
	err := w.Process(context.Background(), recibo(t))
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Len(t, p.llamado, 2)
}

func TestReciboWorker_PayloadInvalidoNoSeReintenta(t *testing.T) {
	p := &printerStub{}
	w := NewReciboWorker(p, infra.NewCircuitBreaker(infra.DefaultCBConfig()), t.TempDir())
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"items":"x"`)))
	assert.Empty(t, p.llamado)
}

type conciliadorStub struct {
	resultados []*dto.ConciliacionResponse
	i          int
}

func (c *conciliadorStub) ConciliarTodo(context.Context) (*dto.ConciliacionResponse, error) {
	r := c.resultados[c.i]
	c.i++
	return r, nil
}

type reportadorStub struct{ got []dto.DiscrepanciaResponse }

func (r *reportadorStub) ReportarDiscrepancia(_ context.Context, d dto.DiscrepanciaResponse) {
	r.got = append(r.got, d)
}

func TestConciliacionCron_SoloReportaPersistentes(t *testing.T) {
	a := dto.DiscrepanciaResponse{ProductoID: "a", StockActual: 3, SaldoLedger: 5, Diferencia: -2}
	b := dto.DiscrepanciaResponse{ProductoID: "b", StockActual: 1, SaldoLedger: 2, Diferencia: -1}
	bMovida := b
	bMovida.Diferencia = -3

	led := &conciliadorStub{resultados: []*dto.ConciliacionResponse{
		{Revisados: 2, Discrepancias: []dto.DiscrepanciaResponse{a, b}},
		{Revisados: 2, Discrepancias: []dto.DiscrepanciaResponse{a, bMovida}},
		{Revisados: 2},
		{Revisados: 2, Discrepancias: []dto.DiscrepanciaResponse{a}},
	}}
	rep := &reportadorStub{}
	cron := NewConciliacionCron(led, rep, time.Minute)
	ctx := context.Background()

	assert.Empty(t, cron.ejecutar(ctx))
	got := cron.ejecutar(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ProductoID)
	assert.Empty(t, cron.ejecutar(ctx))
	assert.Empty(t, cron.ejecutar(ctx))
	assert.Len(t, rep.got, 1)
}

// redisCaido fails every BRPOP as if the server were unreachable.
type redisCaido struct {
	redis.Cmdable
	mu       sync.Mutex
	llamadas int
}

func (r *redisCaido) BRPop(ctx context.Context, _ time.Duration, _ ...string) *redis.StringSliceCmd {
	r.mu.Lock()
	r.llamadas++
	r.mu.Unlock()
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
	return cmd
}

func TestRunWorker_BacksOffWhenRedisIsDown(t *testing.T) {
	rdb := &redisCaido{}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		runWorker(ctx, rdb, 0, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop with its context")
	}

	rdb.mu.Lock()
	defer rdb.mu.Unlock()
	assert.LessOrEqual(t, rdb.llamadas, 2)
}
