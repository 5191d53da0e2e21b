// Package ocr defines the text extraction capability and its engines.
//
// Callers depend on Engine only. The command engine runs an external OCR
// program; the tesseract engine links libtesseract and is only available in
// binaries built with the tesseract build tag.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docket/internal/config"
)

// ErrExtractionFailure wraps every error raised while extracting text.
var ErrExtractionFailure = errors.New("text extraction failed")

// NoConfidence marks a Result whose engine reports no confidence.
const NoConfidence = -1.0

// Result is the immutable output of one extraction.
type Result struct {
	Text string `json:"text"`
	// Confidence is the mean word confidence in [0, 1], or NoConfidence.
	Confidence float64 `json:"confidence"`
	PageCount  int     `json:"page_count"`
}

// HasConfidence reports whether the engine supplied a confidence.
func (r Result) HasConfidence() bool {
	return r.Confidence >= 0
}

// Engine extracts text from a single raster image.
type Engine interface {
	Extract(ctx context.Context, imagePath string) (Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, imagePath string) (Result, error)

// Extract calls f.
func (f EngineFunc) Extract(ctx context.Context, imagePath string) (Result, error) {
	return f(ctx, imagePath)
}

// New returns the engine selected by cfg.Engine.
func New(cfg *config.OCRConfig, logger *slog.Logger) (Engine, error) {
	logger = logger.With("system", "ocr", "engine", cfg.Engine)

	switch cfg.Engine {
	case config.OCREngineCommand:
		return newCommand(cfg, logger), nil
	case config.OCREngineTesseract:
		return newTesseract(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported ocr engine %q", cfg.Engine)
	}
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExtractionFailure, fmt.Sprintf(format, args...))
}
