package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/docket/pkg/lifecycle"
	"github.com/JaimeStill/docket/pkg/storage"
)

func newLocal(t *testing.T) (storage.System, string) {
	t.Helper()
	root := t.TempDir()
	cfg := storage.Config{Provider: storage.ProviderLocal, Path: root}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := storage.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sys.Start(lifecycle.New()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return sys, filepath.Join(root, cfg.Container)
}

func TestLocalPutIsWriteOnce(t *testing.T) {
	sys, root := newLocal(t)
	ctx := context.Background()
	key := storage.Key("mirror", "AP", "2026-01-02__AP__P1__ab12cd34.pdf")

	if err := sys.Put(ctx, key, strings.NewReader("first"), "application/pdf"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := sys.Put(ctx, key, strings.NewReader("second"), "application/pdf")
	if !errors.Is(err, storage.ErrExists) {
		t.Fatalf("second Put() error = %v, want ErrExists", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "mirror", "AP", "2026-01-02__AP__P1__ab12cd34.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Errorf("stored content = %q, want first write preserved", data)
	}

	ok, err := sys.Exists(ctx, key)
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	ok, _ = sys.Exists(ctx, "mirror/none.pdf")
	if ok {
		t.Error("Exists() reported missing key")
	}
}

func TestKeyValidation(t *testing.T) {
	sys, _ := newLocal(t)
	ctx := context.Background()

	if err := sys.Put(ctx, "", strings.NewReader("x"), ""); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("empty key error = %v", err)
	}
	if err := sys.Put(ctx, "a/../../etc", strings.NewReader("x"), ""); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("traversal key error = %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := storage.Key("/archive/", "HR", "x.pdf"); got != "archive/HR/x.pdf" {
		t.Errorf("Key() = %q", got)
	}
	if got := storage.Key("", "HR", "x.pdf"); got != "HR/x.pdf" {
		t.Errorf("Key() = %q", got)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"disabled", storage.Config{}, false},
		{"azure without auth", storage.Config{Provider: storage.ProviderAzure}, true},
		{"azure with service url", storage.Config{Provider: storage.ProviderAzure, ServiceURL: "https://acct.blob.core.windows.net"}, false},
		{"gcs", storage.Config{Provider: storage.ProviderGCS, Container: "bucket"}, false},
		{"unknown", storage.Config{Provider: "s3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAzureFromConnectionString(t *testing.T) {
	cfg := storage.Config{
		Provider:         storage.ProviderAzure,
		ConnectionString: "DefaultEndpointsProtocol=https;AccountName=docket;AccountKey=ZG9ja2V0;EndpointSuffix=core.windows.net",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := storage.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys.Provider() != storage.ProviderAzure {
		t.Errorf("Provider() = %q", sys.Provider())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TEST_STORAGE_PROVIDER", "local")
	t.Setenv("TEST_STORAGE_PATH", "/srv/mirror")

	cfg := storage.Config{}
	err := cfg.Finalize(&storage.Env{Provider: "TEST_STORAGE_PROVIDER", Path: "TEST_STORAGE_PATH"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Enabled() || cfg.Path != "/srv/mirror" || cfg.Container != "docket-archive" {
		t.Errorf("cfg = %+v", cfg)
	}
}
