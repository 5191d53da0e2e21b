// Package records is the route store: the durable, at-most-once mapping
// from content fingerprint to routing outcome.
package records

import (
	"context"

	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/pkg/pagination"
)

// System defines the public contract for route record operations.
type System interface {
	Handler() *Handler

	// Exists is an advisory duplicate check. Record remains authoritative.
	Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error)

	// Record inserts a record and its attributes in one transaction.
	// It returns ErrAlreadyRecorded when the fingerprint already has one.
	Record(ctx context.Context, cmd RecordCommand) (*Record, error)

	Find(ctx context.Context, fp fingerprint.Fingerprint) (*Record, error)
	FindByPath(ctx context.Context, finalPath string) (*Record, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)
}
