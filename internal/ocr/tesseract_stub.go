//go:build !tesseract

package ocr

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docket/internal/config"
)

func newTesseract(_ *config.OCRConfig, _ *slog.Logger) (Engine, error) {
	return nil, fmt.Errorf("ocr engine %q requires a binary built with -tags tesseract", config.OCREngineTesseract)
}
