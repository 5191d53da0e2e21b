package stamp

import "errors"

var (
	// ErrCorruptStamp means the stamp decoded from an artifact does not
	// match the payload that was encoded, or could not be decoded at all.
	ErrCorruptStamp = errors.New("corrupt stamp")
	// ErrNoStamp means no readable QR code was found in the artifact.
	ErrNoStamp = errors.New("no stamp found")
	// ErrUnsupportedFormat means the artifact type cannot carry a stamp.
	ErrUnsupportedFormat = errors.New("unsupported stamp format")
)
