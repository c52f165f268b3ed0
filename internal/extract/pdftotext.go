package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool. -layout
// preserves column alignment, which matters for tabular BOQ pages.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText writes the PDF bytes to a temp file, runs pdftotext -layout,
// and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfData []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "boq-pdf-")
	if err != nil {
		return "", eris.Wrap(err, "extract: create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "upload.pdf")
	if err := os.WriteFile(tmpPath, pdfData, 0o600); err != nil {
		return "", eris.Wrap(err, "extract: write temp pdf")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmpPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "extract: pdftotext failed: %s", stderr.String())
	}
	return stdout.String(), nil
}
