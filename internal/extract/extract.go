// Package extract turns uploaded files into plain text for ingestion.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docrag/internal/contextutil"
)

var (
	// ErrUnsupportedType is returned for file extensions no handler accepts.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrToolNotFound is returned when an external extraction tool is not installed.
	ErrToolNotFound = errors.New("extraction tool not found in PATH")
)

// ExtractionError reports a failed extraction of a single file.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Result is the plain text of a document. It is transient: nothing stores it as-is.
type Result struct {
	Source string // file name the text came from
	Title  string
	Text   string
}

// Summarizer condenses OCR output. Implemented by the chat LLM.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Extractor dispatches on file extension.
type Extractor struct {
	runner     CommandRunner
	markdown   *MarkdownExtractor
	summarizer Summarizer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext and tesseract.
func WithRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithSummarizer appends an LLM summary of key phrases to OCR output.
func WithSummarizer(s Summarizer) Option {
	return func(e *Extractor) {
		e.summarizer = s
	}
}

// New creates an Extractor that shells out through ExecRunner by default.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		runner:   ExecRunner{},
		markdown: NewMarkdownExtractor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var supportedExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Supported reports whether filename has an extension the extractor handles.
func Supported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ExtractFile reads path and extracts its text.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	if !Supported(path) {
		return nil, &ExtractionError{File: filepath.Base(path), Err: ErrUnsupportedType}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{File: filepath.Base(path), Err: err}
	}
	return e.Extract(ctx, filepath.Base(path), data)
}

// Extract extracts text from data, choosing a handler by filename extension.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	res := &Result{Source: filename, Title: titleFromFilename(filename)}
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt":
		res.Text, err = plainText(data)
	case ".md":
		var text string
		text, err = plainText(data)
		if err == nil {
			res.Title, res.Text = e.markdown.Extract([]byte(text), filename)
		}
	case ".pdf":
		res.Text, err = e.extractPDF(ctx, data)
	case ".png", ".jpg", ".jpeg":
		res.Text, err = e.extractImage(ctx, ext, data)
	default:
		err = ErrUnsupportedType
	}
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: err}
	}

	logger.DebugContext(ctx, "extracted text", "file", filename, "chars", utf8.RuneCountInString(res.Text))
	return res, nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid UTF-8 text")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
