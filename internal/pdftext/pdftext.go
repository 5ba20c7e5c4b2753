// Package pdftext turns a PDF file into per-page text.
package pdftext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/config"
)

// PageSource extracts the text of every page of a PDF, in page order.
type PageSource interface {
	Pages(ctx context.Context, pdfPath string) ([]string, error)
}

// NewPageSource creates a PageSource based on config.
func NewPageSource(cfg config.PDFConfig) (PageSource, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "native":
		return NewNative(), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("pdftext: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("pdftext: unknown provider %q", cfg.Provider)
	}
}
