package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/docket/internal/intake"
)

// RunBatch processes items on at most workers goroutines and returns their
// outcomes in input order. One item's failure never stops the others.
func (o *Orchestrator) RunBatch(ctx context.Context, items []intake.Item, workers int) []Outcome {
	outcomes := make([]Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = o.Process(ctx, item)
			return nil
		})
	}

	g.Wait()
	return outcomes
}

// Summary counts outcomes by status.
type Summary map[Status]int

// Summarize tallies outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{}
	for _, o := range outcomes {
		s[o.Status]++
	}
	return s
}

// Poller scans the intake directory on a fixed interval and processes what
// it finds. A batch completes before the next scan starts.
type Poller struct {
	orch     *Orchestrator
	dir      string
	interval time.Duration
	workers  int
	logger   *slog.Logger
}

// NewPoller creates a Poller using the orchestrator's intake settings.
func NewPoller(orch *Orchestrator) *Poller {
	cfg := &orch.rt.Intake
	return &Poller{
		orch:     orch,
		dir:      cfg.Dir,
		interval: cfg.PollIntervalDuration(),
		workers:  cfg.Workers,
		logger:   orch.rt.Logger.With("system", "poller"),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "dir", p.dir, "interval", p.interval, "workers", p.workers)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one scan and processes the items found.
func (p *Poller) Poll(ctx context.Context) []Outcome {
	items, err := intake.Scan(p.dir)
	if err != nil {
		p.logger.Error("scan failed", "error", err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	outcomes := p.orch.RunBatch(ctx, items, p.workers)
	summary := Summarize(outcomes)

	p.logger.Info("batch complete",
		"items", len(items),
		"ok", summary[StatusOK],
		"needs_review", summary[StatusNeedsReview],
		"duplicate", summary[StatusDuplicate],
		"error", summary[StatusError],
		"skipped", summary[StatusSkipped],
		"duration", time.Since(start),
	)
	return outcomes
}
