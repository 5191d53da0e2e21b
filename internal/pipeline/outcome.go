package pipeline

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/fingerprint"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/internal/stamp"
)

// Status is the terminal result of one item.
type Status string

const (
	StatusOK          Status = "OK"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusDuplicate   Status = "DUPLICATE"
	StatusError       Status = "ERROR"
	// StatusSkipped leaves the item in the intake directory for the next poll.
	StatusSkipped Status = "SKIPPED"
)

// Terminal reports whether the item left the intake directory.
func (s Status) Terminal() bool {
	return s != StatusSkipped
}

// Category refines NEEDS_REVIEW and ERROR outcomes.
type Category string

const (
	CategoryNone              Category = ""
	CategoryLowConfidence     Category = "LOW_CONFIDENCE"
	CategoryUnsupportedFormat Category = "UNSUPPORTED_FORMAT"
	CategoryExtractionFailure Category = "EXTRACTION_FAILURE"
	CategoryCorruptStamp      Category = "CORRUPT_STAMP"
	CategoryUnclassified      Category = "UNCLASSIFIED"
)

// Categorize maps an item failure onto its category.
func Categorize(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ocr.ErrExtractionFailure):
		return CategoryExtractionFailure
	case errors.Is(err, stamp.ErrCorruptStamp):
		return CategoryCorruptStamp
	case errors.Is(err, stamp.ErrUnsupportedFormat), errors.Is(err, ErrUnsupportedFormat):
		return CategoryUnsupportedFormat
	default:
		return CategoryUnclassified
	}
}

// State is a step of the per-item state machine.
type State string

const (
	StateIngested      State = "ingested"
	StateStabilized    State = "stabilized"
	StateExtracted     State = "extracted"
	StateFingerprinted State = "fingerprinted"
	StateClassified    State = "classified"
	StateRouted        State = "routed"
	StateStamped       State = "stamped"
	StatePersisted     State = "persisted"
	StateDuplicate     State = "duplicate"
	StateNeedsReview   State = "needs_review"
	StateError         State = "error"
)

// Outcome describes what happened to one item.
type Outcome struct {
	ItemID        uuid.UUID               `json:"item_id"`
	OriginalPath  string                  `json:"original_path"`
	FinalPath     string                  `json:"final_path,omitempty"`
	Fingerprint   fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	RouteTag      string                  `json:"route_tag,omitempty"`
	PriorityTier  string                  `json:"priority_tier,omitempty"`
	Confidence    float64                 `json:"confidence"`
	OCRConfidence float64                 `json:"ocr_confidence"`
	Source        string                  `json:"source,omitempty"`
	Status        Status                  `json:"status"`
	Category      Category                `json:"category,omitempty"`
	State         State                   `json:"state"`
	Detail        string                  `json:"detail,omitempty"`
	Record        *records.Record         `json:"record,omitempty"`
	Attributes    map[string]string       `json:"attributes,omitempty"`
	CompletedAt   time.Time               `json:"completed_at"`
}

func (o Outcome) auditExtra() map[string]string {
	extra := map[string]string{
		"category":    string(o.Category),
		"fingerprint": o.Fingerprint.String(),
		"source":      o.Source,
	}
	if o.Fingerprint != "" {
		extra["confidence"] = strconv.FormatFloat(o.Confidence, 'f', 2, 64)
		if o.OCRConfidence >= 0 {
			extra["ocr_confidence"] = strconv.FormatFloat(o.OCRConfidence, 'f', 2, 64)
		}
	}
	for _, key := range []string{records.AttrDocumentType, records.AttrAmount, records.AttrClientCode} {
		extra[key] = o.Attributes[key]
	}
	return extra
}
