// Package fsutil moves and writes files without ever leaving a partial
// destination behind or silently replacing an existing one.
//
// Within one volume a move is a hard link followed by removal of the source,
// which fails rather than clobbers when the destination exists. Across
// volumes the source is copied to a temporary file beside the destination,
// fsynced, verified by SHA-256 against the source, and linked into place
// before the source is removed. Any failure leaves the source untouched.
package fsutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrExists reports that a move target is already occupied.
	ErrExists = errors.New("destination already exists")
	// ErrDigestMismatch reports that a cross-volume copy did not match its source.
	ErrDigestMismatch = errors.New("copied file digest does not match source")
)

// Move relocates src to dst, creating dst's directory. It returns ErrExists
// when dst is occupied.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	err := os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			if rerr := os.Remove(dst); rerr != nil {
				return errors.Join(fmt.Errorf("remove source after link: %w", err), fmt.Errorf("unlink destination: %w", rerr))
			}
			return fmt.Errorf("remove source after link: %w", err)
		}
		return syncDir(filepath.Dir(dst))
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrExists, dst)
	case errors.Is(err, syscall.EXDEV):
		return copyMove(src, dst, false)
	}

	// hard links unsupported on this filesystem
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return copyMove(src, dst, false)
		}
		return fmt.Errorf("rename %s: %w", src, err)
	}
	return syncDir(filepath.Dir(dst))
}

// Replace relocates src to dst, overwriting any file already at dst.
func Replace(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return copyMove(src, dst, true)
		}
		return fmt.Errorf("rename %s: %w", src, err)
	}
	return syncDir(filepath.Dir(dst))
}

// WriteFile writes data to path through a temporary file, fsync and rename.
// Readers observe either the old content or the complete new content.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docket-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return syncDir(dir)
}

// Digest returns the SHA-256 of the file at path.
func Digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// UniquePath returns a path in dir for name that is not currently occupied.
// Occupied names get a unix-time suffix, then a counter.
func UniquePath(dir, name string, now time.Time) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := strconv.FormatInt(now.Unix(), 10)

	candidate = filepath.Join(dir, stem+"_"+stamp+ext)
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", stem, stamp, n, ext))
	}
	return candidate
}

func copyMove(src, dst string, replace bool) error {
	dir := filepath.Dir(dst)

	tmp, err := os.CreateTemp(dir, ".docket-move-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	in, err := os.Open(src)
	if err != nil {
		cleanup()
		return fmt.Errorf("open source: %w", err)
	}
	srcHash := sha256.New()
	_, err = io.Copy(io.MultiWriter(tmp, srcHash), in)
	in.Close()
	if err != nil {
		cleanup()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if info, err := os.Stat(src); err == nil {
		_ = tmp.Chmod(info.Mode().Perm())
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close copy: %w", err)
	}

	got, err := Digest(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("verify copy: %w", err)
	}
	if !bytes.Equal(got, srcHash.Sum(nil)) {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s", ErrDigestMismatch, dst)
	}

	if replace {
		err = os.Rename(tmpPath, dst)
	} else {
		err = os.Link(tmpPath, dst)
		os.Remove(tmpPath)
	}
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, dst)
		}
		return fmt.Errorf("place copy: %w", err)
	}
	if err := syncDir(dir); err != nil {
		return err
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	// directory fsync is unsupported on some platforms
	_ = d.Sync()
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
