package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"barpos/internal/dto"
)

// PrinterClient sends receipts to the printer sidecar, which owns the
// ESC/POS connection to the physical thermal printer.
type PrinterClient struct {
	sidecarURL string
	httpClient *http.Client
}

func NewPrinterClient(sidecarURL string) *PrinterClient {
	return &PrinterClient{
		sidecarURL: sidecarURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type imprimirRequest struct {
	Recibo  dto.ReciboPayload `json:"recibo"`
	PDFPath string            `json:"pdf_path,omitempty"`
}

// Imprimir posts the receipt to the sidecar. pdfPath may be empty when the
// PDF could not be rendered; the sidecar then prints from the payload alone.
func (c *PrinterClient) Imprimir(ctx context.Context, r dto.ReciboPayload, pdfPath string) error {
	body, err := json.Marshal(imprimirRequest{Recibo: r, PDFPath: pdfPath})
	if err != nil {
		return fmt.Errorf("printer: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+"/imprimir", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("printer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printer: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("printer: sidecar returned %d", resp.StatusCode)
	}
	return nil
}
