// Package audit appends one CSV row per processed intake item.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Header holds the fixed leading columns of every audit file.
var Header = []string{
	"timestamp",
	"original_path",
	"final_path",
	"route_tag",
	"priority_tier",
	"status",
	"error_detail",
}

// ErrHeaderMismatch reports an existing audit file whose header differs from
// the configured columns.
var ErrHeaderMismatch = errors.New("audit header mismatch")

// Row is one audit entry. Extra carries values for extension columns;
// keys not configured as columns are dropped.
type Row struct {
	Timestamp    time.Time
	OriginalPath string
	FinalPath    string
	RouteTag     string
	PriorityTier string
	Status       string
	ErrorDetail  string
	Extra        map[string]string
}

func (r Row) record(columns []string) []string {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	out := []string{
		ts.UTC().Format(time.RFC3339),
		r.OriginalPath,
		r.FinalPath,
		r.RouteTag,
		r.PriorityTier,
		r.Status,
		r.ErrorDetail,
	}
	for _, col := range columns {
		out = append(out, r.Extra[col])
	}
	return out
}

// Logger appends rows to a CSV file. Appends are serialized and each row
// is flushed and synced before Append returns.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	columns []string
	logger  *slog.Logger
}

// Open opens or creates the audit file at path. A new or empty file gets the
// header; an existing file must carry exactly the same header.
func Open(path string, columns []string, logger *slog.Logger) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	header := slices.Concat(Header, columns)
	l := &Logger{
		file:    f,
		writer:  csv.NewWriter(f),
		columns: slices.Clone(columns),
		logger:  logger.With("system", "audit"),
	}

	existing, err := csv.NewReader(f).Read()
	switch {
	case errors.Is(err, io.EOF):
		if err := l.write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("read audit header: %w", err)
	case !slices.Equal(existing, header):
		f.Close()
		return nil, fmt.Errorf("%w: %s has [%s], want [%s]",
			ErrHeaderMismatch, path, strings.Join(existing, ","), strings.Join(header, ","))
	}

	return l, nil
}

// Columns returns the configured extension columns.
func (l *Logger) Columns() []string {
	return slices.Clone(l.columns)
}

// Append writes row to the audit file.
func (l *Logger) Append(row Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}
	if err := l.write(row.record(l.columns)); err != nil {
		l.logger.Error("audit append failed", "path", row.OriginalPath, "error", err)
		return fmt.Errorf("append audit row: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(rec []string) error {
	if err := l.writer.Write(rec); err != nil {
		return err
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return err
	}
	return l.file.Sync()
}
