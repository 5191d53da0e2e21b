package stamp

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/JaimeStill/docket/pkg/fsutil"
)

// minStampSide is the smallest QR overlay, in pixels, that still decodes
// reliably after JPEG compression.
const minStampSide = 200

const stampMargin = 16

// Kind classifies an artifact by how a stamp is applied to it.
type Kind int

const (
	KindUnsupported Kind = iota
	KindDocument
	KindImage
)

// KindOf maps a file extension to its stamp kind.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindDocument
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return KindImage
	default:
		return KindUnsupported
	}
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// compositeDocument merges the QR image as a watermark onto the first
// page of the PDF at src, writing the result to dst.
func compositeDocument(src, dst string, qrPNG []byte, scale float64) error {
	qrFile, err := os.CreateTemp(filepath.Dir(dst), ".stamp-*.png")
	if err != nil {
		return fmt.Errorf("create stamp image: %w", err)
	}
	defer os.Remove(qrFile.Name())

	if _, err := qrFile.Write(qrPNG); err != nil {
		qrFile.Close()
		return fmt.Errorf("write stamp image: %w", err)
	}
	if err := qrFile.Close(); err != nil {
		return fmt.Errorf("write stamp image: %w", err)
	}

	desc := fmt.Sprintf("pos:tr, off:-%d -%d, scalefactor:%.2f rel, rot:0, op:1", stampMargin, stampMargin, scale)
	if err := api.AddImageWatermarksFile(src, dst, []string{"1"}, true, qrFile.Name(), desc, pdfConfig()); err != nil {
		return fmt.Errorf("stamp pdf: %w", err)
	}
	return nil
}

// compositeImage overlays the QR image onto the top-right corner of the
// image at src and re-encodes it in the source format at dst.
func compositeImage(src, dst string, qrPNG []byte, scale float64) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	base, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	mark, err := png.Decode(bytes.NewReader(qrPNG))
	if err != nil {
		return fmt.Errorf("decode stamp image: %w", err)
	}

	bounds := base.Bounds()
	short := min(bounds.Dx(), bounds.Dy())
	side := max(int(float64(short)*scale), minStampSide)
	if side+2*stampMargin > short {
		return fmt.Errorf("image %dx%d too small for a %dpx stamp", bounds.Dx(), bounds.Dy(), side)
	}

	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, base, bounds.Min, draw.Src)

	target := image.Rect(
		bounds.Max.X-stampMargin-side,
		bounds.Min.Y+stampMargin,
		bounds.Max.X-stampMargin,
		bounds.Min.Y+stampMargin+side,
	)
	draw.NearestNeighbor.Scale(canvas, target, mark, mark.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 95})
	case "tiff":
		err = tiff.Encode(&buf, canvas, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(&buf, canvas)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}

	return fsutil.WriteFile(dst, buf.Bytes(), 0o644)
}

// documentImages returns the encoded images placed on the first page of the PDF at path.
func documentImages(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var images [][]byte
	digest := func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		data, err := readAll(img)
		if err != nil {
			return err
		}
		images = append(images, data)
		return nil
	}

	if err := api.ExtractImages(f, []string{"1"}, digest, pdfConfig()); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}
	return images, nil
}

func readAll(img model.Image) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(img); err != nil {
		return nil, fmt.Errorf("read pdf image %s: %w", img.Name, err)
	}
	return buf.Bytes(), nil
}
