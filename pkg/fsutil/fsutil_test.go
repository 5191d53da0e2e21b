package fsutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/docket/pkg/fsutil"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestMoveCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "intake", "scan.pdf")
	dst := filepath.Join(root, "processed", "AP", "2026-01-02__AP__P1__ab12cd34.pdf")
	write(t, src, "payload")

	if err := fsutil.Move(src, dst); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after move")
	}
	if got := read(t, dst); got != "payload" {
		t.Errorf("dst content = %q", got)
	}
}

func TestMoveRefusesExisting(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.pdf")
	dst := filepath.Join(root, "b.pdf")
	write(t, src, "new")
	write(t, dst, "old")

	err := fsutil.Move(src, dst)
	if !errors.Is(err, fsutil.ErrExists) {
		t.Fatalf("Move() error = %v, want ErrExists", err)
	}
	if read(t, dst) != "old" {
		t.Error("existing destination was overwritten")
	}
	if read(t, src) != "new" {
		t.Error("source should remain in place on failure")
	}
}

func TestMoveUnlinksDestinationWhenSourceStays(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	src := filepath.Join(root, "intake", "scan.pdf")
	dst := filepath.Join(root, "processed", "scan.pdf")
	write(t, src, "payload")

	locked := filepath.Dir(src)
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	if err := fsutil.Move(src, dst); err == nil {
		t.Fatal("Move() should fail when the source cannot be removed")
	}
	if _, err := os.Lstat(dst); !os.IsNotExist(err) {
		t.Errorf("destination left behind after failed move (err %v)", err)
	}
	if read(t, src) != "payload" {
		t.Error("source should remain in place on failure")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.pdf")
	dst := filepath.Join(root, "out", "b.pdf")
	write(t, src, "new")
	write(t, dst, "old")

	if err := fsutil.Replace(src, dst); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if read(t, dst) != "new" {
		t.Error("Replace did not overwrite destination")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := fsutil.WriteFile(path, []byte(`{"ok":true}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if read(t, path) != `{"ok":true}` {
		t.Error("unexpected content")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestDigestMatchesContent(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	write(t, a, "same")
	write(t, b, "same")

	da, err := fsutil.Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, _ := fsutil.Digest(b)
	if string(da) != string(db) || len(da) != 32 {
		t.Errorf("digests differ or wrong length")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1767312000, 0)

	first := fsutil.UniquePath(dir, "scan.pdf", now)
	if first != filepath.Join(dir, "scan.pdf") {
		t.Errorf("first = %s", first)
	}
	write(t, first, "x")

	second := fsutil.UniquePath(dir, "scan.pdf", now)
	if second != filepath.Join(dir, "scan_1767312000.pdf") {
		t.Errorf("second = %s", second)
	}
	write(t, second, "x")

	third := fsutil.UniquePath(dir, "scan.pdf", now)
	if third != filepath.Join(dir, "scan_1767312000_1.pdf") {
		t.Errorf("third = %s", third)
	}
}
