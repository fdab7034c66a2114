package worker

import (
	"context"
	"time"

	"barpos/internal/dto"

	"github.com/rs/zerolog/log"
)

type Conciliador interface {
	ConciliarTodo(ctx context.Context) (*dto.ConciliacionResponse, error)
}

type ReportadorDiscrepancias interface {
	ReportarDiscrepancia(ctx context.Context, d dto.DiscrepanciaResponse)
}

// ConciliacionCron compares cached stock with the ledger on a fixed interval.
// A settlement in flight shows up as a transient difference, so a
// discrepancy is only reported once it is seen unchanged on two consecutive
// runs.
type ConciliacionCron struct {
	ledger     Conciliador
	reportador ReportadorDiscrepancias
	interval   time.Duration
	previas    map[string]int
}

func NewConciliacionCron(ledger Conciliador, reportador ReportadorDiscrepancias, interval time.Duration) *ConciliacionCron {
	return &ConciliacionCron{
		ledger:     ledger,
		reportador: reportador,
		interval:   interval,
		previas:    map[string]int{},
	}
}

// Start runs the cron until ctx is cancelled.
func (c *ConciliacionCron) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		log.Info().Dur("interval", c.interval).Msg("conciliacion_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("conciliacion_cron: shutting down")
				return
			case <-ticker.C:
				c.ejecutar(ctx)
			}
		}
	}()
}

// ejecutar runs one pass and returns the discrepancies it reported.
func (c *ConciliacionCron) ejecutar(ctx context.Context) []dto.DiscrepanciaResponse {
	res, err := c.ledger.ConciliarTodo(ctx)
	if err != nil {
		log.Error().Err(err).Msg("conciliacion_cron: conciliation failed")
		return nil
	}

	actuales := make(map[string]int, len(res.Discrepancias))
	var reportadas []dto.DiscrepanciaResponse
	for _, d := range res.Discrepancias {
		actuales[d.ProductoID] = d.Diferencia
		if prev, ok := c.previas[d.ProductoID]; ok && prev == d.Diferencia {
			log.Error().
				Str("producto_id", d.ProductoID).
				Int("stock_actual", d.StockActual).
				Int("saldo_ledger", d.SaldoLedger).
				Int("diferencia", d.Diferencia).
				Msg("conciliacion_cron: persistent discrepancy")
			c.reportador.ReportarDiscrepancia(ctx, d)
			reportadas = append(reportadas, d)
		}
	}
	c.previas = actuales

	log.Debug().Int("revisados", res.Revisados).Int("discrepancias", len(res.Discrepancias)).
		Msg("conciliacion_cron: pass complete")
	return reportadas
}
