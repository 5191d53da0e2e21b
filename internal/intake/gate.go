package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotStableYet marks a file that is still being written. It is never
// reported as a failure; the file is retried on the next poll.
var ErrNotStableYet = errors.New("file not stable yet")

// Gate confirms a file's size holds steady across a wait interval.
type Gate struct {
	wait time.Duration
}

// NewGate creates a Gate that waits the given interval between size reads.
func NewGate(wait time.Duration) *Gate {
	return &Gate{wait: wait}
}

// Stable reports whether the size of path is unchanged after the wait.
// A file that disappears during the wait is not stable. Cancelling ctx
// aborts the wait and returns the context error.
func (g *Gate) Stable(ctx context.Context, path string) (bool, error) {
	before, err := size(path)
	if err != nil {
		return false, err
	}

	if g.wait > 0 {
		timer := time.NewTimer(g.wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	after, err := size(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return before == after, nil
}

// Check wraps Stable, returning ErrNotStableYet for a file still in motion.
func (g *Gate) Check(ctx context.Context, path string) error {
	ok, err := g.Stable(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotStableYet)
	}
	return nil
}

func size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
