package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/pkg/database"
	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

type repo struct {
	db         *sql.DB
	bind       repository.Binder
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a route record repository implementing the System interface.
func New(db database.System, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db.Connection(),
		bind:       db.Rebind,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	n, err := repository.Count(ctx, r.db, r.bind,
		"SELECT COUNT(*) FROM route_records WHERE fingerprint = ?", fp.String())
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return n > 0, nil
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Record, error) {
	rec, err := cmd.build()
	if err != nil {
		return nil, err
	}

	const insert = `
		INSERT INTO route_records(
			id, fingerprint, route_tag, priority_tier, final_path, original_path,
			status, confidence, source, client_code, document_type, amount, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	const insertAttr = `INSERT INTO route_record_attributes(record_id, key, value) VALUES (?, ?, ?)`

	err = repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := repository.ExecExpectOne(ctx, tx, r.bind, insert,
			rec.ID,
			rec.Fingerprint.String(),
			rec.RouteTag,
			rec.PriorityTier,
			rec.FinalPath,
			rec.OriginalPath,
			rec.Status,
			rec.Confidence,
			rec.Source,
			rec.ClientCode,
			rec.DocumentType,
			rec.Amount,
			rec.RecordedAt,
		); err != nil {
			return err
		}

		for key, value := range rec.Attributes {
			if err := repository.ExecExpectOne(ctx, tx, r.bind, insertAttr, rec.ID, key, value); err != nil {
				return fmt.Errorf("insert attribute %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, fmt.Errorf("%s: %w", rec.Fingerprint, ErrAlreadyRecorded)
		}
		return nil, fmt.Errorf("record route: %w", err)
	}

	r.logger.Info("route recorded",
		"fingerprint", rec.Fingerprint,
		"route_tag", rec.RouteTag,
		"priority_tier", rec.PriorityTier,
		"final_path", rec.FinalPath,
	)
	return &rec, nil
}

func (r *repo) Find(ctx context.Context, fp fingerprint.Fingerprint) (*Record, error) {
	return r.findBy(ctx, "Fingerprint", fp.String())
}

func (r *repo) FindByPath(ctx context.Context, finalPath string) (*Record, error) {
	return r.findBy(ctx, "FinalPath", finalPath)
}

func (r *repo) findBy(ctx context.Context, field string, value any) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle(field, value)

	rec, err := repository.QueryOne(ctx, r.db, r.bind, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyRecorded)
	}

	recs := []Record{rec}
	if err := r.loadAttributes(ctx, recs); err != nil {
		return nil, err
	}
	return &recs[0], nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Fingerprint", "OriginalPath", "FinalPath")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.Count(ctx, r.db, r.bind, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recs, err := repository.QueryMany(ctx, r.db, r.bind, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	if err := r.loadAttributes(ctx, recs); err != nil {
		return nil, err
	}

	result := pagination.NewPageResult(recs, total, page.Page, page.PageSize)
	return &result, nil
}

// loadAttributes fills the extension attributes of recs with one query.
func (r *repo) loadAttributes(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	index := make(map[string]int, len(recs))
	args := make([]any, len(recs))
	for i := range recs {
		recs[i].Attributes = map[string]string{}
		index[recs[i].ID.String()] = i
		args[i] = recs[i].ID
	}

	q := fmt.Sprintf(
		"SELECT record_id, key, value FROM route_record_attributes WHERE record_id IN (%s)",
		repository.Placeholders(len(recs)),
	)

	attrs, err := repository.QueryMany(ctx, r.db, r.bind, q, args, scanAttribute)
	if err != nil {
		return fmt.Errorf("query attributes: %w", err)
	}

	for _, a := range attrs {
		if i, ok := index[strings.ToLower(a.recordID)]; ok {
			recs[i].Attributes[a.key] = a.value
		}
	}
	return nil
}
