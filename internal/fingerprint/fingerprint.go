// Package fingerprint derives the content identity of a document from its
// extracted text and raw bytes.
//
// The digest input is the text length as an 8-byte big-endian integer, the
// text, then the raw bytes. The length prefix keeps the boundary between
// text and bytes unambiguous.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"regexp"

	"github.com/zeebo/blake3"
)

// Supported algorithms.
const (
	SHA256 = "sha256"
	BLAKE3 = "blake3"
)

var pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Fingerprint is a 64 character lower-case hex digest.
type Fingerprint string

// String returns the hex digest.
func (f Fingerprint) String() string {
	return string(f)
}

// Prefix returns the first n hex characters, or the whole digest if n is
// out of range.
func (f Fingerprint) Prefix(n int) string {
	if n <= 0 || n >= len(f) {
		return string(f)
	}
	return string(f[:n])
}

// Valid reports whether f is a well-formed digest.
func (f Fingerprint) Valid() bool {
	return pattern.MatchString(string(f))
}

// Parse validates s as a Fingerprint.
func Parse(s string) (Fingerprint, error) {
	f := Fingerprint(s)
	if !f.Valid() {
		return "", fmt.Errorf("invalid fingerprint %q", s)
	}
	return f, nil
}

// Hasher computes fingerprints with a fixed algorithm. It holds no state
// between calls and is safe for concurrent use.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

// New returns a Hasher for algorithm ("sha256" or "blake3").
func New(algorithm string) (*Hasher, error) {
	switch algorithm {
	case SHA256, "":
		return &Hasher{algorithm: SHA256, newHash: sha256.New}, nil
	case BLAKE3:
		return &Hasher{algorithm: BLAKE3, newHash: func() hash.Hash { return blake3.New() }}, nil
	default:
		return nil, fmt.Errorf("unsupported fingerprint algorithm %q", algorithm)
	}
}

// Algorithm names the digest in use.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Compute hashes text followed by raw.
func (h *Hasher) Compute(text string, raw []byte) Fingerprint {
	d := h.newHash()

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(text)))
	d.Write(n[:])
	d.Write([]byte(text))
	d.Write(raw)

	return Fingerprint(hex.EncodeToString(d.Sum(nil)))
}
