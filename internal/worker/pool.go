package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barpos/internal/dto"
	"barpos/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueRecibos = "jobs:recibos"
	// QueueIncidentes is an operator-facing list; nothing consumes it.
	QueueIncidentes = "incidentes"

	maxIncidentes  = 1000
	maxJobAttempts = 3
	brpopBackoff   = time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error re-enqueues the job
// until maxJobAttempts, then moves it to the DLQ.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Incidente is what operators read from QueueIncidentes.
type Incidente struct {
	Tipo                 string                    `json:"tipo"` // inconsistencia | discrepancia
	Referencia           string                    `json:"referencia,omitempty"`
	Pendientes           map[string]int            `json:"pendientes,omitempty"`
	MovimientosSinAnular []string                  `json:"movimientos_sin_anular,omitempty"`
	Causa                string                    `json:"causa,omitempty"`
	Compensacion         string                    `json:"compensacion,omitempty"`
	Discrepancia         *dto.DiscrepanciaResponse `json:"discrepancia,omitempty"`
	Fecha                string                    `json:"fecha"`
}

// Dispatcher enqueues async jobs into Redis lists. It is the production
// implementation of service.Impresora and service.Incidentes.
type Dispatcher struct {
	rdb redis.Cmdable
}

func NewDispatcher(rdb redis.Cmdable) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

var (
	_ service.Impresora  = (*Dispatcher)(nil)
	_ service.Incidentes = (*Dispatcher)(nil)
)

// Imprimir queues the receipt. The error only reports the enqueue; printing
// itself happens in the worker pool.
func (d *Dispatcher) Imprimir(ctx context.Context, recibo dto.ReciboPayload) error {
	return d.enqueue(ctx, QueueRecibos, Job{Type: "recibo"}, recibo)
}

func (d *Dispatcher) ReportarInconsistencia(ctx context.Context, inc *service.InconsistenciaError) {
	in := Incidente{
		Tipo:       "inconsistencia",
		Referencia: inc.Referencia,
		Pendientes: make(map[string]int, len(inc.Pendientes)),
		Fecha:      time.Now().UTC().Format(time.RFC3339),
	}
	for id, n := range inc.Pendientes {
		in.Pendientes[id.String()] = n
	}
	for _, id := range inc.MovimientosSinAnular {
		in.MovimientosSinAnular = append(in.MovimientosSinAnular, id.String())
	}
	if inc.Causa != nil {
		in.Causa = inc.Causa.Error()
	}
	if inc.Compensacion != nil {
		in.Compensacion = inc.Compensacion.Error()
	}
	d.registrar(ctx, in)
}

func (d *Dispatcher) ReportarDiscrepancia(ctx context.Context, disc dto.DiscrepanciaResponse) {
	d.registrar(ctx, Incidente{
		Tipo:         "discrepancia",
		Discrepancia: &disc,
		Fecha:        time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Dispatcher) registrar(ctx context.Context, in Incidente) {
	data, err := json.Marshal(in)
	if err != nil {
		log.Error().Err(err).Str("tipo", in.Tipo).Msg("incidentes: marshal")
		return
	}
	_, err = d.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, QueueIncidentes, data)
		p.LTrim(ctx, QueueIncidentes, 0, maxIncidentes-1)
		return nil
	})
	if err != nil {
		// the service already logged the incident; this is the only copy lost
		log.Error().Err(err).RawJSON("incidente", data).Msg("incidentes: no se pudo encolar")
	}
}

// ListarIncidentes returns the most recent incidents, newest first.
func (d *Dispatcher) ListarIncidentes(ctx context.Context, n int64) ([]Incidente, error) {
	raw, err := d.rdb.LRange(ctx, QueueIncidentes, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Incidente, 0, len(raw))
	for _, r := range raw {
		var in Incidente
		if err := json.Unmarshal([]byte(r), &in); err != nil {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the receipt queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb redis.Cmdable, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb redis.Cmdable, id int, handlers map[string]Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueRecibos).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("BRPOP failed, backing off")
					pausa(ctx, brpopBackoff)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func pausa(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func processJob(ctx context.Context, rdb redis.Cmdable, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler registered", job.Attempts)
		return
	}

	err := h(ctx, job.Payload)
	if err == nil {
		return
	}
	job.Attempts++
	if job.Attempts >= maxJobAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload,
			fmt.Sprintf("max attempts (%d) exceeded: %v", maxJobAttempts, err), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, re-enqueued")
	encoded, merr := json.Marshal(job)
	if merr != nil {
		return
	}
	if perr := rdb.LPush(ctx, queue, encoded).Err(); perr != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "re-enqueue failed: "+perr.Error(), job.Attempts)
	}
}
