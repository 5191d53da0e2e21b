//go:build tesseract

package ocr

import (
	"context"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/JaimeStill/docket/internal/config"
)

type tesseract struct {
	language string
	logger   *slog.Logger
}

func newTesseract(cfg *config.OCRConfig, logger *slog.Logger) (Engine, error) {
	return &tesseract{language: cfg.Language, logger: logger}, nil
}

func (t *tesseract) Extract(ctx context.Context, imagePath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return Result{}, failure("set language: %v", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return Result{}, failure("set image: %v", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, failure("recognize: %v", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{}, failure("word boxes: %v", err)
	}

	result := Result{Text: text, Confidence: NoConfidence, PageCount: 1}
	if len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		result.Confidence = min(max(sum/float64(len(boxes))/100, 0), 1)
	}

	t.logger.Debug("ocr complete", "path", imagePath, "words", len(boxes), "confidence", result.Confidence)
	return result, nil
}
