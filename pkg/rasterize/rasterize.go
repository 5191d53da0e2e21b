// Package rasterize renders PDF pages to PNG through ImageMagick.
package rasterize

import (
	"context"
	"fmt"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
)

// Renderer renders a single PDF page.
type Renderer interface {
	// Page returns PNG bytes for the 1-based page of the PDF at path.
	Page(ctx context.Context, path string, page int) ([]byte, error)
}

type magick struct {
	cfg config.ImageConfig
}

// New creates an ImageMagick-backed Renderer at the given DPI.
// A non-positive dpi uses the library default.
func New(dpi int) Renderer {
	cfg := config.DefaultImageConfig()
	cfg.Format = "png"
	if dpi > 0 {
		cfg.DPI = dpi
	}
	cfg.Options = map[string]any{"background": "white"}
	return &magick{cfg: cfg}
}

func (m *magick) Page(ctx context.Context, path string, page int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := document.OpenPDF(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	p, err := doc.ExtractPage(page)
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", page, err)
	}

	renderer, err := image.NewImageMagickRenderer(m.cfg)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	data, err := p.ToImage(renderer, nil)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return data, nil
}
