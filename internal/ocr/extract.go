package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/docket/pkg/rasterize"
)

// Extractor prepares documents for an Engine. PDFs are counted with pdfcpu
// and their first page rasterized; images are passed through unchanged.
type Extractor struct {
	engine   Engine
	renderer rasterize.Renderer
	tmpDir   string
	logger   *slog.Logger
}

// NewExtractor creates an Extractor writing page rasters under tmpDir.
func NewExtractor(engine Engine, renderer rasterize.Renderer, tmpDir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		engine:   engine,
		renderer: renderer,
		tmpDir:   tmpDir,
		logger:   logger.With("system", "extract"),
	}
}

// Extract returns the text of the document at path. Errors other than
// context cancellation wrap ErrExtractionFailure.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		result, err := e.engine.Extract(ctx, path)
		if err != nil {
			return Result{}, wrap(ctx, err)
		}
		result.PageCount = max(result.PageCount, 1)
		return result, nil
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return Result{}, failure("page count: %v", err)
	}
	if pages < 1 {
		return Result{}, failure("%s has no pages", filepath.Base(path))
	}

	raster, err := e.renderer.Page(ctx, path, 1)
	if err != nil {
		return Result{}, wrap(ctx, fmt.Errorf("rasterize: %w", err))
	}

	img, err := os.CreateTemp(e.tmpDir, ".ocr-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("create raster file: %w", err)
	}
	defer os.Remove(img.Name())

	_, err = img.Write(raster)
	if cerr := img.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, fmt.Errorf("write raster file: %w", err)
	}

	result, err := e.engine.Extract(ctx, img.Name())
	if err != nil {
		return Result{}, wrap(ctx, err)
	}
	result.PageCount = pages

	e.logger.Debug("document extracted", "path", path, "pages", pages)
	return result, nil
}

func wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrExtractionFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrExtractionFailure, err)
}
