// Package intake discovers inbound files and confirms they are fully written
// before the pipeline takes ownership of them.
package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is one inbound file owned by the pipeline until it reaches a terminal outcome.
type Item struct {
	ID          uuid.UUID `json:"id"`
	SourcePath  string    `json:"source_path"`
	ArrivalTime time.Time `json:"arrival_time"`
	SizeBytes   int64     `json:"size_bytes"`
}

// NewItem stats path and builds an Item stamped with the file's modification time.
func NewItem(path string) (Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Item{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Item{}, fmt.Errorf("%s: not a regular file", path)
	}
	return Item{
		ID:          uuid.New(),
		SourcePath:  path,
		ArrivalTime: info.ModTime(),
		SizeBytes:   info.Size(),
	}, nil
}

// Name returns the base filename of the item.
func (i Item) Name() string {
	return filepath.Base(i.SourcePath)
}

// Ext returns the lower-cased extension including the leading dot.
func (i Item) Ext() string {
	return strings.ToLower(filepath.Ext(i.SourcePath))
}

// Scan lists the regular, non-hidden files directly inside dir, oldest first.
// Temporary upload artifacts (dotfiles, *.part, *.tmp) are ignored.
func Scan(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read intake dir: %w", err)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || ignored(e.Name()) {
			continue
		}
		item, err := NewItem(filepath.Join(dir, e.Name()))
		if err != nil {
			// removed or replaced between ReadDir and Stat
			continue
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		if c := a.ArrivalTime.Compare(b.ArrivalTime); c != 0 {
			return c
		}
		return strings.Compare(a.SourcePath, b.SourcePath)
	})
	return items, nil
}

func ignored(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".part" || ext == ".tmp" || ext == ".crdownload"
}
