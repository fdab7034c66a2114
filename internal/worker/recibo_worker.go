package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"barpos/internal/dto"
	"barpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// Printer is satisfied by *infra.PrinterClient.
type Printer interface {
	Imprimir(ctx context.Context, r dto.ReciboPayload, pdfPath string) error
}

// ReciboWorker renders the receipt PDF and sends it to the printer sidecar.
type ReciboWorker struct {
	printer        Printer
	cb             *infra.CircuitBreaker
	pdfStoragePath string
}

func NewReciboWorker(printer Printer, cb *infra.CircuitBreaker, pdfStoragePath string) *ReciboWorker {
	return &ReciboWorker{printer: printer, cb: cb, pdfStoragePath: pdfStoragePath}
}

// Process handles a single receipt job. A PDF failure is logged and the
// receipt still goes to the printer; a printer failure is returned so the
// pool retries it.
func (w *ReciboWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var r dto.ReciboPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		// retrying won't fix a malformed payload
		log.Error().Err(err).Msg("recibo_worker: invalid payload")
		return nil
	}

	pdfPath, err := infra.GenerateReciboPDF(r, w.pdfStoragePath)
	if err != nil {
		log.Warn().Err(err).Str("codigo", r.Codigo).Msg("recibo_worker: pdf generation failed")
		pdfPath = ""
	}

	err = w.cb.Execute(func() error {
		return w.printer.Imprimir(ctx, r, pdfPath)
	})
	if err != nil {
		return fmt.Errorf("recibo %s/%s: %w", r.Tipo, r.Codigo, err)
	}
	log.Info().Str("tipo", r.Tipo).Str("codigo", r.Codigo).Str("pdf", pdfPath).Msg("recibo_worker: printed")
	return nil
}
