// Package pipeline drives intake items through stabilization, extraction,
// fingerprinting, classification, stamping and persistence.
//
// Each item ends in exactly one terminal status, OK, NEEDS_REVIEW, DUPLICATE
// or ERROR, and gets one audit row, or is SKIPPED and left in the intake
// directory for the next poll. An item is only reported OK after its route
// record has been inserted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/JaimeStill/docket/internal/audit"
	"github.com/JaimeStill/docket/internal/classify"
	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/internal/intake"
	"github.com/JaimeStill/docket/internal/naming"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/internal/stamp"
	"github.com/JaimeStill/docket/pkg/formatting"
	"github.com/JaimeStill/docket/pkg/fsutil"
)

// Orchestrator processes intake items. It is safe for concurrent use;
// items with the same fingerprint are serialized.
type Orchestrator struct {
	rt     *Runtime
	locks  *keyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Orchestrator over rt.
func New(rt *Runtime) (*Orchestrator, error) {
	if err := rt.validate(); err != nil {
		return nil, fmt.Errorf("invalid runtime: %w", err)
	}
	return &Orchestrator{
		rt:     rt,
		locks:  newKeyedMutex(),
		now:    time.Now,
		logger: rt.Logger.With("system", "pipeline"),
	}, nil
}

type run struct {
	item   intake.Item
	out    Outcome
	logger *slog.Logger
	staged []string
}

type routing struct {
	tag  string
	tier string
	name string
	full string
}

// Process drives item to an outcome. Panics are recovered and reported as
// ERROR/UNCLASSIFIED.
func (o *Orchestrator) Process(ctx context.Context, item intake.Item) (out Outcome) {
	r := &run{
		item:   item,
		logger: o.logger.With("item_id", item.ID, "path", item.SourcePath),
		out: Outcome{
			ItemID:        item.ID,
			OriginalPath:  item.SourcePath,
			OCRConfidence: ocr.NoConfidence,
			Source:        records.SourceLocal,
			State:         StateIngested,
		},
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while processing item", "panic", rec, "stack", string(debug.Stack()))
			if r.out.State == StatePersisted {
				r.out.Detail = fmt.Sprintf("panic after persist: %v", rec)
			} else {
				o.fail(r, fmt.Errorf("%w: panic: %v", ErrUnclassified, rec))
			}
		}
		for _, path := range r.staged {
			os.Remove(path)
		}
		out = o.finish(r)
	}()

	o.process(ctx, r)
	return r.out
}

func (o *Orchestrator) process(ctx context.Context, r *run) {
	rt := o.rt
	item := r.item

	stable, err := rt.Gate.Stable(ctx, item.SourcePath)
	switch {
	case ctx.Err() != nil:
		o.skip(r, ctx.Err())
		return
	case errors.Is(err, os.ErrNotExist):
		o.skip(r, err)
		return
	case err != nil:
		o.fail(r, fmt.Errorf("%w: stability check: %v", ErrUnclassified, err))
		return
	case !stable:
		o.skip(r, intake.ErrNotStableYet)
		return
	}
	r.out.State = StateStabilized

	if err := o.admit(item); err != nil {
		o.needsReview(r, CategoryUnsupportedFormat, err)
		return
	}

	extraction, err := rt.Extractor.Extract(ctx, item.SourcePath)
	if err != nil {
		if ctx.Err() != nil {
			o.skip(r, ctx.Err())
			return
		}
		if !errors.Is(err, ocr.ErrExtractionFailure) {
			err = fmt.Errorf("%w: %w", ocr.ErrExtractionFailure, err)
		}
		o.fail(r, err)
		return
	}
	r.out.State = StateExtracted
	r.out.OCRConfidence = extraction.Confidence

	raw, err := os.ReadFile(item.SourcePath)
	if err != nil {
		o.fail(r, fmt.Errorf("%w: read source: %v", ErrUnclassified, err))
		return
	}
	fp := rt.Hasher.Compute(extraction.Text, raw)
	r.out.Fingerprint = fp
	r.out.State = StateFingerprinted
	r.logger = r.logger.With("fingerprint", fp.Prefix(12))

	unlock := o.locks.Lock(fp.String())
	defer unlock()

	exists, err := rt.Records.Exists(ctx, fp)
	if err != nil {
		if ctx.Err() != nil {
			o.skip(r, ctx.Err())
			return
		}
		o.fail(r, fmt.Errorf("%w: duplicate check: %v", ErrUnclassified, err))
		return
	}
	if exists {
		o.duplicate(r, fmt.Errorf("%w: fingerprint already recorded", ErrDuplicate))
		return
	}

	class := rt.Classifier.Classify(extraction.Text)
	meta := classify.ExtractMetadata(extraction.Text)
	r.out.RouteTag = class.RouteTag
	r.out.PriorityTier = class.PriorityTier
	r.out.Confidence = classify.Gating(class.Confidence, extraction.Confidence)
	r.out.Attributes = o.attributes(meta)
	r.out.State = StateClassified

	if !rt.Classifier.Passes(r.out.Confidence) {
		o.needsReview(r, CategoryLowConfidence, fmt.Errorf("%w: %.2f < %.2f",
			classify.ErrLowConfidence, r.out.Confidence, rt.Classifier.MinConfidence()))
		return
	}
	r.out.State = StateRouted

	now := o.now()
	route := routing{tag: class.RouteTag, tier: class.PriorityTier}
	o.localNames(&route, fp, item.Ext(), now)

	staged, err := o.stamp(ctx, r, route.tag, now)
	if err != nil {
		o.stampFailed(ctx, r, err)
		return
	}

	if rt.Dispatcher != nil {
		stampedTag := route.tag
		o.dispatch(ctx, r, &route, staged, meta, now)
		if ctx.Err() != nil {
			o.skip(r, ctx.Err())
			return
		}
		if route.tag != stampedTag {
			if staged, err = o.stamp(ctx, r, route.tag, now); err != nil {
				o.stampFailed(ctx, r, err)
				return
			}
		}
	}
	r.out.RouteTag = route.tag
	r.out.State = StateStamped

	dir := filepath.Join(rt.Intake.ProcessedDir, rt.Intake.RouteDir(route.tag))
	target, replace, err := o.resolve(ctx, r, dir, route)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			o.skip(r, ctx.Err())
		case errors.Is(err, ErrDuplicate):
			o.duplicate(r, err)
		default:
			o.fail(r, fmt.Errorf("%w: resolve target: %v", ErrUnclassified, err))
		}
		return
	}

	if err := ctx.Err(); err != nil {
		o.skip(r, err)
		return
	}
	o.persist(ctx, r, staged, target, replace, now)
}

// admit rejects files the pipeline cannot stamp or that exceed the size limit.
func (o *Orchestrator) admit(item intake.Item) error {
	cfg := &o.rt.Intake
	if !cfg.Allowed(item.Ext()) || stamp.KindOf(item.SourcePath) == stamp.KindUnsupported {
		return fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, item.Ext())
	}
	info, err := os.Stat(item.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if limit := cfg.MaxFileSizeBytes(); info.Size() > limit {
		return fmt.Errorf("%w: size %s exceeds limit %s", ErrUnsupportedFormat,
			formatting.FormatBytes(info.Size(), 1), formatting.FormatBytes(limit, 1))
	}
	return nil
}

func (o *Orchestrator) localNames(route *routing, fp fingerprint.Fingerprint, ext string, now time.Time) {
	route.name = naming.Build(now, route.tag, route.tier, fp.Prefix(o.rt.Intake.FingerprintPrefix), ext)
	route.full = naming.Build(now, route.tag, route.tier, fp.String(), ext)
}

// stamp writes a stamped copy of the original into the staging directory.
func (o *Orchestrator) stamp(ctx context.Context, r *run, tag string, now time.Time) (string, error) {
	staged := filepath.Join(o.rt.Intake.StagingDir, fmt.Sprintf("%s-%s%s", r.item.ID, naming.Sanitize(tag), r.item.Ext()))
	if err := os.MkdirAll(o.rt.Intake.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	r.staged = append(r.staged, staged)

	payload := stamp.NewPayload(r.out.Fingerprint, tag, now)
	if err := o.rt.Stamper.Stamp(ctx, r.item.SourcePath, staged, payload); err != nil {
		return "", err
	}
	return staged, nil
}

func (o *Orchestrator) stampFailed(ctx context.Context, r *run, err error) {
	switch {
	case ctx.Err() != nil:
		o.skip(r, ctx.Err())
	case errors.Is(err, stamp.ErrUnsupportedFormat):
		o.needsReview(r, CategoryUnsupportedFormat, err)
	case errors.Is(err, stamp.ErrCorruptStamp):
		o.fail(r, err)
	default:
		o.fail(r, fmt.Errorf("%w: stamp: %v", ErrUnclassified, err))
	}
}

// resolve picks the final path for route inside dir.
//
// A free name is used as is. An occupied name recorded for the same
// fingerprint is a duplicate; recorded for another fingerprint it is a
// prefix collision and the full-fingerprint name is used. An unrecorded
// file whose stamp carries this fingerprint is the orphan of an interrupted
// run and is replaced. An unrecorded file with a foreign stamp falls back to
// the full-fingerprint name, and one without a readable stamp is a duplicate.
func (o *Orchestrator) resolve(ctx context.Context, r *run, dir string, route routing) (string, bool, error) {
	fp := r.out.Fingerprint
	target := filepath.Join(dir, route.name)
	if !exists(target) {
		return target, false, nil
	}

	rec, err := o.rt.Records.FindByPath(ctx, target)
	switch {
	case err == nil:
		if rec.Fingerprint == fp {
			return "", false, fmt.Errorf("%w: %s already recorded for this content", ErrDuplicate, target)
		}
		return o.fullTarget(r, dir, route)
	case !errors.Is(err, records.ErrNotFound):
		return "", false, err
	}

	payload, err := o.rt.Stamper.Inspect(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, fmt.Errorf("%w: unrecorded file %s has no readable stamp", ErrDuplicate, target)
	}
	if payload.Fingerprint == fp {
		r.logger.Info("replacing orphaned artifact", "target", target)
		return target, true, nil
	}
	return o.fullTarget(r, dir, route)
}

func (o *Orchestrator) fullTarget(r *run, dir string, route routing) (string, bool, error) {
	target := filepath.Join(dir, route.full)
	if exists(target) {
		return "", false, fmt.Errorf("%w: %s and %s are both occupied", ErrDuplicate, route.name, route.full)
	}
	r.logger.Warn("fingerprint prefix collision, using full fingerprint", "name", route.full)
	return target, false, nil
}

// persist files the staged artifact and inserts the route record. Both run
// detached from ctx so that a started insert always completes.
func (o *Orchestrator) persist(ctx context.Context, r *run, staged, target string, replace bool, now time.Time) {
	pctx := context.WithoutCancel(ctx)
	if d := o.rt.Intake.InsertTimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(pctx, d)
		defer cancel()
	}

	place := fsutil.Move
	if replace {
		place = fsutil.Replace
	}
	if err := place(staged, target); err != nil {
		if errors.Is(err, fsutil.ErrExists) {
			o.duplicate(r, fmt.Errorf("%w: %v", ErrDuplicate, err))
			return
		}
		o.fail(r, fmt.Errorf("%w: file artifact: %v", ErrUnclassified, err))
		return
	}

	rec, err := o.rt.Records.Record(pctx, records.RecordCommand{
		Fingerprint:  r.out.Fingerprint,
		RouteTag:     r.out.RouteTag,
		PriorityTier: r.out.PriorityTier,
		FinalPath:    target,
		OriginalPath: r.item.SourcePath,
		Status:       records.StatusOK,
		Confidence:   r.out.Confidence,
		Source:       r.out.Source,
		Attributes:   r.out.Attributes,
		RecordedAt:   now,
	})
	if err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			r.logger.Error("remove unrecorded artifact failed", "target", target, "error", rmErr)
		}
		if errors.Is(err, records.ErrAlreadyRecorded) {
			o.duplicate(r, fmt.Errorf("%w: %v", ErrDuplicate, err))
			return
		}
		o.fail(r, fmt.Errorf("%w: record: %v", ErrUnclassified, err))
		return
	}

	r.out.Record = rec
	r.out.FinalPath = target
	r.out.Status = StatusOK
	r.out.State = StatePersisted

	if err := os.Remove(r.item.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("remove original failed", "error", err)
	}
	o.archive(pctx, r, target)
}

func (o *Orchestrator) attributes(meta classify.Metadata) map[string]string {
	attrs := meta.Attributes()
	attrs[records.AttrClientCode] = o.rt.Intake.DefaultClientCode
	for k, v := range attrs {
		attrs[k] = truncate(v, records.MaxAttributeValue)
	}
	return attrs
}

func (o *Orchestrator) skip(r *run, reason error) {
	r.out.Status = StatusSkipped
	r.out.Detail = reason.Error()
}

func (o *Orchestrator) duplicate(r *run, err error) {
	r.out.Status = StatusDuplicate
	r.out.State = StateDuplicate
	r.out.Category = CategoryNone
	r.out.Detail = err.Error()
	r.out.FinalPath = o.park(r, o.rt.Intake.DuplicateHoldDir)
}

func (o *Orchestrator) needsReview(r *run, category Category, err error) {
	r.out.Status = StatusNeedsReview
	r.out.State = StateNeedsReview
	r.out.Category = category
	r.out.Detail = err.Error()
	r.out.FinalPath = o.park(r, o.rt.Intake.NeedsReviewDir)
}

func (o *Orchestrator) fail(r *run, err error) {
	r.out.Status = StatusError
	r.out.State = StateError
	r.out.Category = Categorize(err)
	r.out.Detail = err.Error()
	r.out.FinalPath = o.park(r, o.rt.Intake.ReviewDir)
}

// park moves the original into dir under a free name. On failure the
// original stays in the intake directory.
func (o *Orchestrator) park(r *run, dir string) string {
	dst := fsutil.UniquePath(dir, r.item.Name(), o.now())
	if err := fsutil.Move(r.item.SourcePath, dst); err != nil {
		r.logger.Error("move original failed", "destination", dst, "error", err)
		return ""
	}
	return dst
}

func (o *Orchestrator) finish(r *run) Outcome {
	r.out.CompletedAt = o.now()
	out := r.out

	if !out.Status.Terminal() {
		r.logger.Debug("item skipped", "reason", out.Detail)
		return out
	}

	row := audit.Row{
		Timestamp:    out.CompletedAt,
		OriginalPath: out.OriginalPath,
		FinalPath:    out.FinalPath,
		RouteTag:     out.RouteTag,
		PriorityTier: out.PriorityTier,
		Status:       string(out.Status),
		Extra:        out.auditExtra(),
	}
	if out.Status != StatusOK {
		row.ErrorDetail = out.Detail
	}
	if err := o.rt.Audit.Append(row); err != nil {
		r.logger.Error("audit append failed", "error", err)
	}

	attrs := []any{
		"status", out.Status,
		"route_tag", out.RouteTag,
		"priority_tier", out.PriorityTier,
		"confidence", out.Confidence,
		"final_path", out.FinalPath,
	}
	switch out.Status {
	case StatusOK:
		r.logger.Info("item routed", append(attrs, "source", out.Source)...)
	case StatusError:
		r.logger.Error("item failed", append(attrs, "category", out.Category, "error", out.Detail)...)
	default:
		r.logger.Warn("item held", append(attrs, "category", out.Category, "detail", out.Detail)...)
	}
	return out
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
