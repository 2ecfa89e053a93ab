package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"docrag/internal/contextutil"
)

const pdfTool = "pdftotext"

// extractPDF reads the text layer in-process. PDFs the parser cannot read, or
// whose text layer comes out blank, are retried with pdftotext when installed.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	text, err := readPDFText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), nil
	}
	if err == nil {
		err = errors.New("no text layer")
	}
	logger.DebugContext(ctx, "in-process pdf extraction failed, trying pdftotext", "error", err)

	if _, lookErr := e.runner.LookPath(pdfTool); lookErr != nil {
		return "", fmt.Errorf("%w: %s (install poppler-utils): %v", ErrToolNotFound, pdfTool, err)
	}
	return e.runPDFToText(ctx, data)
}

func readPDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return string(raw), nil
}

// runPDFToText runs pdftotext in reading order (no -layout, which pads columns
// with runs of spaces). Form feeds between pages become blank lines.
func (e *Extractor) runPDFToText(ctx context.Context, data []byte) (string, error) {
	path, cleanup, err := writeTemp(data, "*.pdf")
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, err := e.runner.Run(ctx, pdfTool, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n\n")
	return strings.TrimSpace(text), nil
}

func writeTemp(data []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", "docrag-"+pattern)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(f.Name())
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
