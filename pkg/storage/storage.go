// Package storage mirrors filed artifacts into write-once blob storage.
// Every backend performs a conditional create: writing a key that already
// holds an object returns ErrExists and leaves the stored object intact.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/JaimeStill/docket/pkg/lifecycle"
)

// System is a write-once object store.
type System interface {
	// Start registers startup hooks that prepare the container or bucket.
	Start(lc *lifecycle.Coordinator) error
	// Put stores reader under key unless an object already exists there.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Provider names the backend.
	Provider() string
}

// New creates the backend selected by cfg.Provider.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "provider", cfg.Provider)

	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderGCS:
		return newGCS(cfg, logger)
	case ProviderLocal:
		return newLocal(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}

// Key joins the configured prefix with name using forward slashes.
func Key(prefix string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if prefix != "" {
		all = append(all, strings.Trim(prefix, "/"))
	}
	all = append(all, parts...)
	return path.Join(all...)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
