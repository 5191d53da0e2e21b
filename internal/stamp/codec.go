package stamp

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qr "github.com/skip2/go-qrcode"
	_ "golang.org/x/image/tiff"
)

// Codec converts payload bytes to a QR image and back.
type Codec interface {
	// Render returns a PNG encoding of data.
	Render(data []byte) ([]byte, error)
	// Decode locates a QR code anywhere in the encoded image and returns its content.
	Decode(img []byte) ([]byte, error)
}

// RenderSize is the pixel width of rendered QR images.
const RenderSize = 512

type qrCodec struct {
	size int
}

// NewCodec returns the QR codec backed by go-qrcode and gozxing.
func NewCodec() Codec {
	return &qrCodec{size: RenderSize}
}

func (c *qrCodec) Render(data []byte) ([]byte, error) {
	png, err := qr.Encode(string(data), qr.Medium, c.size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

func (c *qrCodec) Decode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return DecodeImage(img)
}

// DecodeImage reads the first QR code found in img.
func DecodeImage(img image.Image) ([]byte, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize image: %w", err)
	}

	hints := map[gozxing.DecodeHintType]any{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoStamp, err)
	}
	return []byte(result.GetText()), nil
}
