package ocr_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/ocr"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t2550\t3300\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t100\t200\t40\t96.5\tINVOICE\n" +
	"5\t1\t1\t1\t1\t2\t320\t100\t100\t40\t91.5\t#4411\n" +
	"4\t1\t1\t1\t2\t0\t100\t160\t400\t40\t-1\t\n" +
	"5\t1\t1\t1\t2\t1\t100\t160\t200\t40\t82\tPast\n" +
	"5\t1\t1\t1\t2\t2\t320\t160\t100\t40\t90\tdue\n"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseTSV(t *testing.T) {
	r := ocr.ParseTSV([]byte(sampleTSV))

	if r.Text != "INVOICE #4411\nPast due" {
		t.Errorf("text = %q", r.Text)
	}
	if r.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", r.Confidence)
	}
}

func TestParseTSVEmpty(t *testing.T) {
	r := ocr.ParseTSV([]byte("level\tpage_num\n"))
	if r.Text != "" || r.HasConfidence() {
		t.Errorf("result = %+v", r)
	}
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandEngineTSV(t *testing.T) {
	requireTool(t, "cat")

	path := filepath.Join(t.TempDir(), "page.tsv")
	if err := os.WriteFile(path, []byte(sampleTSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.OCRConfig{Engine: config.OCREngineCommand, Command: []string{"cat", "{path}"}, Output: "tsv", Timeout: "10s"}
	engine, err := ocr.New(cfg, discard())
	if err != nil {
		t.Fatal(err)
	}

	r, err := engine.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if r.Text != "INVOICE #4411\nPast due" || r.PageCount != 1 {
		t.Errorf("result = %+v", r)
	}
}

func TestCommandEngineText(t *testing.T) {
	requireTool(t, "cat")

	path := filepath.Join(t.TempDir(), "page.txt")
	if err := os.WriteFile(path, []byte("  receipt  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.OCRConfig{Engine: config.OCREngineCommand, Command: []string{"cat", "{path}"}, Output: "text", Timeout: "10s"}
	engine, _ := ocr.New(cfg, discard())

	r, err := engine.Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "receipt" || r.HasConfidence() {
		t.Errorf("result = %+v", r)
	}
}

func TestCommandEngineFailure(t *testing.T) {
	requireTool(t, "cat")

	cfg := &config.OCRConfig{Engine: config.OCREngineCommand, Command: []string{"cat", "{path}"}, Output: "text", Timeout: "10s"}
	engine, _ := ocr.New(cfg, discard())

	_, err := engine.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, ocr.ErrExtractionFailure) {
		t.Errorf("error = %v, want ErrExtractionFailure", err)
	}
}

func TestCommandEngineTimeout(t *testing.T) {
	requireTool(t, "sh")

	cfg := &config.OCRConfig{Engine: config.OCREngineCommand, Command: []string{"sh", "-c", "sleep 5", "{path}"}, Output: "text", Timeout: "50ms"}
	engine, _ := ocr.New(cfg, discard())

	start := time.Now()
	_, err := engine.Extract(context.Background(), "ignored.png")
	if !errors.Is(err, ocr.ErrExtractionFailure) {
		t.Errorf("error = %v, want ErrExtractionFailure", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestPathIsNotShellInterpolated(t *testing.T) {
	requireTool(t, "cat")

	dir := t.TempDir()
	path := filepath.Join(dir, "a; touch pwned.txt")
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.OCRConfig{Engine: config.OCREngineCommand, Command: []string{"cat", "{path}"}, Output: "text", Timeout: "10s"}
	engine, _ := ocr.New(cfg, discard())

	if _, err := engine.Extract(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "pwned.txt")); err == nil {
		t.Error("path was interpreted by a shell")
	}
}

func TestExtractorImagePassthrough(t *testing.T) {
	var seen string
	engine := ocr.EngineFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		seen = path
		return ocr.Result{Text: "hello", Confidence: 0.7}, nil
	})

	x := ocr.NewExtractor(engine, nil, t.TempDir(), discard())
	r, err := x.Extract(context.Background(), "/in/scan.png")
	if err != nil {
		t.Fatal(err)
	}
	if seen != "/in/scan.png" || r.PageCount != 1 || r.Text != "hello" {
		t.Errorf("seen=%s result=%+v", seen, r)
	}
}

func TestExtractorWrapsEngineErrors(t *testing.T) {
	engine := ocr.EngineFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		return ocr.Result{}, errors.New("engine crashed")
	})

	x := ocr.NewExtractor(engine, nil, t.TempDir(), discard())
	if _, err := x.Extract(context.Background(), "scan.jpg"); !errors.Is(err, ocr.ErrExtractionFailure) {
		t.Errorf("error = %v, want ErrExtractionFailure", err)
	}
}

func TestExtractorCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := ocr.EngineFunc(func(ctx context.Context, path string) (ocr.Result, error) {
		t.Error("engine should not run for an unreadable pdf")
		return ocr.Result{}, nil
	})

	x := ocr.NewExtractor(engine, nil, t.TempDir(), discard())
	if _, err := x.Extract(context.Background(), path); !errors.Is(err, ocr.ErrExtractionFailure) {
		t.Errorf("error = %v, want ErrExtractionFailure", err)
	}
}

func TestUnknownEngine(t *testing.T) {
	cfg := &config.OCRConfig{Engine: "cloud"}
	if _, err := ocr.New(cfg, discard()); err == nil {
		t.Error("expected error for unknown engine")
	}
}
