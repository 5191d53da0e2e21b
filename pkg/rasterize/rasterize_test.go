package rasterize_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/docket/pkg/rasterize"
)

func TestPageMissingFile(t *testing.T) {
	r := rasterize.New(150)
	if _, err := r.Page(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 1); err == nil {
		t.Error("expected error for missing pdf")
	}
}

func TestPageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rasterize.New(0).Page(ctx, "any.pdf", 1); err != context.Canceled {
		t.Errorf("Page() error = %v, want context.Canceled", err)
	}
}
