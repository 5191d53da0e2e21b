package records

import (
	"cmp"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/fingerprint"
)

// Record statuses and sources.
const (
	StatusOK = "OK"

	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Typed attribute keys stored in dedicated columns.
const (
	AttrClientCode   = "client_code"
	AttrDocumentType = "document_type"
	AttrAmount       = "amount"
)

// Limits on extension attributes kept in route_record_attributes.
const (
	MaxExtraAttributes = 16
	MaxAttributeValue  = 512
)

var attributeKey = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Record is the durable outcome of routing one fingerprint. It is written
// once and never updated.
type Record struct {
	ID           uuid.UUID               `json:"id"`
	Fingerprint  fingerprint.Fingerprint `json:"fingerprint"`
	RouteTag     string                  `json:"route_tag"`
	PriorityTier string                  `json:"priority_tier"`
	FinalPath    string                  `json:"final_path"`
	OriginalPath string                  `json:"original_path"`
	Status       string                  `json:"status"`
	Confidence   float64                 `json:"confidence"`
	Source       string                  `json:"source"`
	ClientCode   *string                 `json:"client_code,omitempty"`
	DocumentType *string                 `json:"document_type,omitempty"`
	Amount       *float64                `json:"amount,omitempty"`
	Attributes   map[string]string       `json:"attributes,omitempty"`
	RecordedAt   time.Time               `json:"recorded_at"`
}

// RecordCommand carries the fields of a new Record. Attributes may hold
// the typed keys client_code, document_type and amount alongside up to
// MaxExtraAttributes extension keys.
type RecordCommand struct {
	Fingerprint  fingerprint.Fingerprint
	RouteTag     string
	PriorityTier string
	FinalPath    string
	OriginalPath string
	Status       string
	Confidence   float64
	Source       string
	Attributes   map[string]string
	RecordedAt   time.Time
}

// build validates cmd and splits typed attributes from extension attributes.
func (cmd RecordCommand) build() (Record, error) {
	if !cmd.Fingerprint.Valid() {
		return Record{}, fmt.Errorf("%w: fingerprint %q", ErrInvalidRecord, cmd.Fingerprint)
	}
	for name, v := range map[string]string{
		"route_tag":     cmd.RouteTag,
		"priority_tier": cmd.PriorityTier,
		"final_path":    cmd.FinalPath,
		"original_path": cmd.OriginalPath,
	} {
		if strings.TrimSpace(v) == "" {
			return Record{}, fmt.Errorf("%w: %s required", ErrInvalidRecord, name)
		}
	}
	if cmd.Confidence < 0 || cmd.Confidence > 1 {
		return Record{}, fmt.Errorf("%w: confidence %v out of range", ErrInvalidRecord, cmd.Confidence)
	}

	rec := Record{
		ID:           uuid.New(),
		Fingerprint:  cmd.Fingerprint,
		RouteTag:     cmd.RouteTag,
		PriorityTier: cmd.PriorityTier,
		FinalPath:    cmd.FinalPath,
		OriginalPath: cmd.OriginalPath,
		Status:       cmp.Or(cmd.Status, StatusOK),
		Confidence:   cmd.Confidence,
		Source:       cmp.Or(cmd.Source, SourceLocal),
		RecordedAt:   cmd.RecordedAt.UTC().Truncate(time.Microsecond),
		Attributes:   map[string]string{},
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	for _, key := range slices.Sorted(maps.Keys(cmd.Attributes)) {
		value := strings.TrimSpace(cmd.Attributes[key])
		if value == "" {
			continue
		}
		if len(value) > MaxAttributeValue {
			return Record{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidAttribute, key, MaxAttributeValue)
		}

		switch key {
		case AttrClientCode:
			rec.ClientCode = &value
		case AttrDocumentType:
			rec.DocumentType = &value
		case AttrAmount:
			amount, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Record{}, fmt.Errorf("%w: amount %q is not numeric", ErrInvalidAttribute, value)
			}
			rec.Amount = &amount
		default:
			if !attributeKey.MatchString(key) {
				return Record{}, fmt.Errorf("%w: key %q", ErrInvalidAttribute, key)
			}
			rec.Attributes[key] = value
		}
	}
	if len(rec.Attributes) > MaxExtraAttributes {
		return Record{}, fmt.Errorf("%w: %d extension attributes exceeds limit of %d",
			ErrInvalidAttribute, len(rec.Attributes), MaxExtraAttributes)
	}

	return rec, nil
}
