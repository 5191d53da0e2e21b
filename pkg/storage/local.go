package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JaimeStill/docket/pkg/fsutil"
	"github.com/JaimeStill/docket/pkg/lifecycle"
)

// local mirrors into a directory tree, typically a mounted network share.
type local struct {
	root   string
	logger *slog.Logger
}

func newLocal(cfg *Config, logger *slog.Logger) *local {
	return &local{
		root:   filepath.Join(cfg.Path, cfg.Container),
		logger: logger,
	}
}

func (l *local) Provider() string { return ProviderLocal }

func (l *local) Start(lc *lifecycle.Coordinator) error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return fmt.Errorf("create archive root: %w", err)
	}
	l.logger.Info("archive directory ready", "path", l.root)
	return nil
}

func (l *local) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return fmt.Errorf("create archive temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("write archive temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync archive temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive temp: %w", err)
	}

	if err := fsutil.Move(tmpPath, dst); err != nil {
		if errors.Is(err, fsutil.ErrExists) {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return err
	}
	return nil
}

func (l *local) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(l.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
