package extract

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/contextutil"
)

const ocrTool = "tesseract"

// extractImage runs tesseract OCR on the image. With a summarizer configured,
// a key-phrase summary is appended after a blank line. A failed summary only
// drops the summary.
func (e *Extractor) extractImage(ctx context.Context, ext string, data []byte) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := e.runner.LookPath(ocrTool); err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, ocrTool)
	}

	path, cleanup, err := writeTemp(data, "*"+ext)
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, err := e.runner.Run(ctx, ocrTool, path, "stdout")
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" || e.summarizer == nil {
		return text, nil
	}

	summary, err := e.summarizer.Summarize(ctx, text)
	if err != nil {
		logger.WarnContext(ctx, "failed to summarize OCR text", "error", err)
		return text, nil
	}
	return text + "\n\n" + strings.TrimSpace(summary), nil
}
