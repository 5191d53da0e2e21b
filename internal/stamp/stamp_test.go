package stamp_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/internal/stamp"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload(t *testing.T) stamp.Payload {
	t.Helper()
	h, err := fingerprint.New(fingerprint.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	fp := h.Compute("invoice past due", []byte("raw"))
	return stamp.NewPayload(fp, "AP", time.Date(2026, 1, 2, 15, 4, 5, 999, time.FixedZone("EST", -5*3600)))
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 250, G: 250, B: 245, A: 255})
		}
	}
	for y := h / 2; y < h/2+10; y++ {
		for x := 20; x < w-20; x++ {
			img.Set(x, y, color.Black)
		}
	}

	var buf bytes.Buffer
	var err error
	switch filepath.Ext(path) {
	case ".jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writePDF writes a single blank Letter page PDF with a valid xref table.
func writePDF(t *testing.T, path string) {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>",
		"<< /Length 0 >>\nstream\n\nendstream",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := testPayload(t)

	data, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ts":"2026-01-02T20:04:05Z"`) {
		t.Errorf("timestamp not normalized to UTC seconds: %s", data)
	}

	got, err := stamp.ParsePayload(data)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(p) {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}

func TestParsePayloadRejects(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"fp":"abc","route":"AP","ts":"2026-01-02T00:00:00Z"}`,
		`{"fp":"` + strings.Repeat("a", 64) + `","route":"","ts":"2026-01-02T00:00:00Z"}`,
		`{"fp":"` + strings.Repeat("a", 64) + `","route":"AP","ts":"yesterday"}`,
	}
	for _, in := range inputs {
		if _, err := stamp.ParsePayload([]byte(in)); err == nil {
			t.Errorf("ParsePayload(%s) should fail", in)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := stamp.NewCodec()
	p := testPayload(t)
	data, _ := p.Marshal()

	img, err := codec.Render(data)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := codec.Decode(img)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("decoded %s, want %s", decoded, data)
	}
}

func TestStampImage(t *testing.T) {
	for _, ext := range []string{".png", ".jpg"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "scan"+ext)
			dst := filepath.Join(dir, "stamped"+ext)
			writeImage(t, src, 1200, 1600)

			v := stamp.New(stamp.NewCodec(), 0.15, discard())
			p := testPayload(t)

			if err := v.Stamp(context.Background(), src, dst, p); err != nil {
				t.Fatalf("Stamp() error = %v", err)
			}

			got, err := v.Inspect(context.Background(), dst)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if !got.Equal(p) {
				t.Errorf("Inspect() = %+v, want %+v", got, p)
			}

			if _, err := v.Inspect(context.Background(), src); !errors.Is(err, stamp.ErrNoStamp) {
				t.Errorf("unstamped source: error = %v, want ErrNoStamp", err)
			}
		})
	}
}

func TestStampDocument(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.pdf")
	dst := filepath.Join(dir, "stamped.pdf")
	writePDF(t, src)

	v := stamp.New(stamp.NewCodec(), 0.15, discard())
	p := testPayload(t)

	if err := v.Stamp(context.Background(), src, dst, p); err != nil {
		t.Fatalf("Stamp() error = %v", err)
	}

	n, err := api.PageCountFile(dst)
	if err != nil || n != 1 {
		t.Errorf("stamped page count = %d, %v", n, err)
	}

	got, err := v.Inspect(context.Background(), dst)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !got.Equal(p) {
		t.Errorf("Inspect() = %+v, want %+v", got, p)
	}
}

type tamperCodec struct {
	stamp.Codec
}

func (c tamperCodec) Decode(img []byte) ([]byte, error) {
	data, err := c.Codec.Decode(img)
	if err != nil {
		return nil, err
	}
	return bytes.Replace(data, []byte(`"route":"AP"`), []byte(`"route":"AR"`), 1), nil
}

func TestStampMismatchIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	dst := filepath.Join(dir, "stamped.png")
	writeImage(t, src, 1200, 1600)

	v := stamp.New(tamperCodec{stamp.NewCodec()}, 0.15, discard())

	err := v.Stamp(context.Background(), src, dst, testPayload(t))
	if !errors.Is(err, stamp.ErrCorruptStamp) {
		t.Fatalf("error = %v, want ErrCorruptStamp", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("corrupt artifact should be removed")
	}
}

type garbageCodec struct {
	stamp.Codec
}

func (c garbageCodec) Decode(img []byte) ([]byte, error) {
	return []byte("garbage"), nil
}

func TestUndecodablePayloadIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	writeImage(t, src, 1200, 1600)

	v := stamp.New(garbageCodec{stamp.NewCodec()}, 0.15, discard())
	err := v.Stamp(context.Background(), src, filepath.Join(dir, "out.png"), testPayload(t))
	if !errors.Is(err, stamp.ErrCorruptStamp) {
		t.Errorf("error = %v, want ErrCorruptStamp", err)
	}
}

func TestStampUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.docx")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := stamp.New(stamp.NewCodec(), 0.15, discard())
	err := v.Stamp(context.Background(), src, filepath.Join(dir, "out.docx"), testPayload(t))
	if !errors.Is(err, stamp.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestStampImageTooSmall(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tiny.png")
	dst := filepath.Join(dir, "out.png")
	writeImage(t, src, 100, 100)

	v := stamp.New(stamp.NewCodec(), 0.15, discard())
	if err := v.Stamp(context.Background(), src, dst, testPayload(t)); err == nil {
		t.Error("expected error for image smaller than the stamp")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("no output should remain after a failed stamp")
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]stamp.Kind{
		"a.pdf":  stamp.KindDocument,
		"a.PDF":  stamp.KindDocument,
		"a.png":  stamp.KindImage,
		"a.JPEG": stamp.KindImage,
		"a.tif":  stamp.KindImage,
		"a.docx": stamp.KindUnsupported,
	}
	for path, want := range tests {
		if got := stamp.KindOf(path); got != want {
			t.Errorf("KindOf(%s) = %v, want %v", path, got, want)
		}
	}
}
