// Package extract turns uploaded PDF documents into plain text for the
// AI-assisted parse path.
package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boq-cli/internal/config"
)

// Extractor extracts text content from PDF bytes.
type Extractor interface {
	ExtractText(ctx context.Context, pdfData []byte) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.PDFConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdf", "":
		return &PDFReader{}, nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}
