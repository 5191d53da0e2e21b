package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/docket/internal/audit"
	"github.com/JaimeStill/docket/internal/classify"
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/dispatch"
	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/internal/intake"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/internal/stamp"
	"github.com/JaimeStill/docket/pkg/rasterize"
	"github.com/JaimeStill/docket/pkg/storage"
)

// Extractor returns the text of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// Runtime bundles the collaborators the orchestrator drives.
// Dispatcher and Archive are optional.
type Runtime struct {
	Intake        config.IntakeConfig
	Gate          *intake.Gate
	Extractor     Extractor
	Hasher        *fingerprint.Hasher
	Classifier    *classify.Classifier
	Stamper       *stamp.Verifier
	Records       records.System
	Dispatcher    dispatch.Dispatcher
	Audit         *audit.Logger
	Archive       storage.System
	ArchivePrefix string
	Logger        *slog.Logger
}

// NewRuntime assembles a Runtime from configuration. archive may be nil.
func NewRuntime(
	cfg *config.Config,
	recs records.System,
	archive storage.System,
	logger *slog.Logger,
) (*Runtime, error) {
	engine, err := ocr.New(&cfg.OCR, logger)
	if err != nil {
		return nil, fmt.Errorf("ocr engine: %w", err)
	}

	hasher, err := fingerprint.New(cfg.Intake.FingerprintAlgorithm)
	if err != nil {
		return nil, err
	}

	classifier, err := classify.New(cfg.Classification)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	auditLog, err := audit.Open(cfg.Intake.AuditLog, cfg.Intake.AuditColumns, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Intake: cfg.Intake,
		Gate:   intake.NewGate(cfg.Intake.StabilityWaitDuration()),
		Extractor: ocr.NewExtractor(
			engine,
			rasterize.New(cfg.OCR.DPI),
			cfg.Intake.StagingDir,
			logger,
		),
		Hasher:        hasher,
		Classifier:    classifier,
		Stamper:       stamp.New(stamp.NewCodec(), cfg.Intake.StampScale, logger),
		Records:       recs,
		Dispatcher:    dispatch.New(&cfg.Dispatch, logger),
		Audit:         auditLog,
		Archive:       archive,
		ArchivePrefix: cfg.Storage.Prefix,
		Logger:        logger,
	}
	if err := rt.Prepare(); err != nil {
		auditLog.Close()
		return nil, err
	}
	return rt, nil
}

// Prepare creates the intake directory layout.
func (rt *Runtime) Prepare() error {
	for _, dir := range []string{
		rt.Intake.Dir,
		rt.Intake.ProcessedDir,
		rt.Intake.NeedsReviewDir,
		rt.Intake.DuplicateHoldDir,
		rt.Intake.ReviewDir,
		rt.Intake.StagingDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Close releases the audit log.
func (rt *Runtime) Close() error {
	if rt.Audit == nil {
		return nil
	}
	return rt.Audit.Close()
}

func (rt *Runtime) validate() error {
	var errs []error
	if rt.Gate == nil {
		errs = append(errs, errors.New("gate required"))
	}
	if rt.Extractor == nil {
		errs = append(errs, errors.New("extractor required"))
	}
	if rt.Hasher == nil {
		errs = append(errs, errors.New("hasher required"))
	}
	if rt.Classifier == nil {
		errs = append(errs, errors.New("classifier required"))
	}
	if rt.Stamper == nil {
		errs = append(errs, errors.New("stamper required"))
	}
	if rt.Records == nil {
		errs = append(errs, errors.New("records required"))
	}
	if rt.Audit == nil {
		errs = append(errs, errors.New("audit required"))
	}
	if rt.Logger == nil {
		errs = append(errs, errors.New("logger required"))
	}
	return errors.Join(errs...)
}
