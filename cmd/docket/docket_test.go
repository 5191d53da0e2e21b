package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dir := func(name string) string { return filepath.ToSlash(filepath.Join(root, name)) }

	cfg := fmt.Sprintf(`
log_level = "error"

[server]
enabled = false

[database]
driver = "sqlite"
path = %q

[intake]
dir = %q
processed_dir = %q
needs_review_dir = %q
duplicate_hold_dir = %q
review_dir = %q
staging_dir = %q
audit_log = %q
stability_wait = "10ms"
`,
		dir("docket.db"),
		dir("inbox"),
		dir("processed"),
		dir("needs_review"),
		dir("duplicate_hold"),
		dir("review"),
		dir("staging"),
		dir("audit.csv"),
	)

	path := filepath.Join(root, "config.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "process", "verify"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			if err != nil {
				t.Fatalf("find %s: %v", name, err)
			}
			if sub.Name() != name {
				t.Errorf("got %s, want %s", sub.Name(), name)
			}
		})
	}

	flag := cmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("config flag missing")
	}
	if flag.Shorthand != "c" {
		t.Errorf("shorthand: got %q, want c", flag.Shorthand)
	}
}

func TestProcessRequiresFiles(t *testing.T) {
	if _, err := execute(t, "process"); err == nil {
		t.Error("expected argument error")
	}
}

func TestProcessUnsupportedFormat(t *testing.T) {
	cfgPath, root := writeConfig(t)

	src := filepath.Join(root, "notes.docx")
	if err := os.WriteFile(src, []byte("not a scan"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "process", src)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var outcome struct {
		Status   string `json:"status"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome %q: %v", out, err)
	}
	if outcome.Status != "NEEDS_REVIEW" {
		t.Errorf("status: got %s, want NEEDS_REVIEW", outcome.Status)
	}
	if outcome.Category != "UNSUPPORTED_FORMAT" {
		t.Errorf("category: got %s, want UNSUPPORTED_FORMAT", outcome.Category)
	}

	if _, err := os.Stat(filepath.Join(root, "needs_review", "notes.docx")); err != nil {
		t.Errorf("original not parked in needs_review: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "audit.csv")); err != nil {
		t.Errorf("audit log missing: %v", err)
	}
}

func TestVerifyUnstampedFile(t *testing.T) {
	cfgPath, root := writeConfig(t)

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(10, 10, color.Gray{Y: 0})

	src := filepath.Join(root, "blank.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := execute(t, "--config", cfgPath, "verify", src)
	if err == nil {
		t.Fatal("expected error for unstamped file")
	}

	var result verification
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode verification %q: %v", out, err)
	}
	if result.Stamped {
		t.Error("blank image reported as stamped")
	}
	if result.Error == "" {
		t.Error("error detail missing")
	}
}
