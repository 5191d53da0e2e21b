// Package stamp embeds a QR tracking payload into document artifacts and
// verifies the embedded payload by decoding it back from the result.
//
// PDFs receive the QR code as an image watermark on the first page. Images
// receive it as an overlay in the top-right corner. An artifact is only
// reported stamped once the payload decoded from it equals the payload that
// was encoded.
package stamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Verifier stamps artifacts and reads stamps back.
type Verifier struct {
	codec  Codec
	scale  float64
	logger *slog.Logger
}

// New creates a Verifier. scale is the QR size relative to the page width
// for PDFs and to the shorter image side for images.
func New(codec Codec, scale float64, logger *slog.Logger) *Verifier {
	return &Verifier{
		codec:  codec,
		scale:  scale,
		logger: logger.With("system", "stamp"),
	}
}

// Stamp writes a stamped copy of src to dst and verifies it. On any
// verification mismatch dst is removed and the error wraps ErrCorruptStamp.
func (v *Verifier) Stamp(ctx context.Context, src, dst string, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	mark, err := v.codec.Render(data)
	if err != nil {
		return err
	}

	switch KindOf(src) {
	case KindDocument:
		err = compositeDocument(src, dst, mark, v.scale)
	case KindImage:
		err = compositeImage(src, dst, mark, v.scale)
	default:
		return fmt.Errorf("%s: %w", src, ErrUnsupportedFormat)
	}
	if err != nil {
		os.Remove(dst)
		return err
	}

	if err := ctx.Err(); err != nil {
		os.Remove(dst)
		return err
	}

	decoded, err := v.Inspect(ctx, dst)
	if err != nil {
		os.Remove(dst)
		if errors.Is(err, ErrCorruptStamp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCorruptStamp, err)
	}
	if !decoded.Equal(p) {
		os.Remove(dst)
		v.logger.Warn("stamp mismatch",
			"path", dst,
			"expected", p.Fingerprint,
			"decoded", decoded.Fingerprint,
		)
		return fmt.Errorf("%w: decoded payload differs from encoded payload", ErrCorruptStamp)
	}

	v.logger.Debug("stamp verified", "path", dst, "fingerprint", p.Fingerprint)
	return nil
}

// Inspect decodes the stamp carried by the artifact at path. It returns
// ErrNoStamp when no QR code is found and ErrCorruptStamp when a QR code
// is found but does not hold a valid payload.
func (v *Verifier) Inspect(ctx context.Context, path string) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}

	var candidates [][]byte
	switch KindOf(path) {
	case KindDocument:
		images, err := documentImages(path)
		if err != nil {
			return Payload{}, err
		}
		candidates = images
	case KindImage:
		data, err := os.ReadFile(path)
		if err != nil {
			return Payload{}, fmt.Errorf("read artifact: %w", err)
		}
		candidates = [][]byte{data}
	default:
		return Payload{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	var lastErr error = ErrNoStamp
	for _, img := range candidates {
		data, err := v.codec.Decode(img)
		if err != nil {
			lastErr = err
			continue
		}
		p, err := ParsePayload(data)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrCorruptStamp, err)
			continue
		}
		return p, nil
	}
	return Payload{}, lastErr
}
