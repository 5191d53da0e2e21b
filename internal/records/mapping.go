package records

import (
	"net/url"

	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("route_records", "r").
	Project("id", "ID").
	Project("fingerprint", "Fingerprint").
	Project("route_tag", "RouteTag").
	Project("priority_tier", "PriorityTier").
	Project("final_path", "FinalPath").
	Project("original_path", "OriginalPath").
	Project("status", "Status").
	Project("confidence", "Confidence").
	Project("source", "Source").
	Project("client_code", "ClientCode").
	Project("document_type", "DocumentType").
	Project("amount", "Amount").
	Project("recorded_at", "RecordedAt")

var defaultSort = query.SortField{
	Field:      "RecordedAt",
	Descending: true,
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.Fingerprint,
		&r.RouteTag,
		&r.PriorityTier,
		&r.FinalPath,
		&r.OriginalPath,
		&r.Status,
		&r.Confidence,
		&r.Source,
		&r.ClientCode,
		&r.DocumentType,
		&r.Amount,
		&r.RecordedAt,
	)
	return r, err
}

type attribute struct {
	recordID string
	key      string
	value    string
}

func scanAttribute(s repository.Scanner) (attribute, error) {
	var a attribute
	err := s.Scan(&a.recordID, &a.key, &a.value)
	return a, err
}

// Filters narrows record listings. Nil fields are ignored; all use exact matching.
type Filters struct {
	RouteTag     *string `json:"route_tag,omitempty"`
	PriorityTier *string `json:"priority_tier,omitempty"`
	Status       *string `json:"status,omitempty"`
	Source       *string `json:"source,omitempty"`
	ClientCode   *string `json:"client_code,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("RouteTag", f.RouteTag).
		WhereEquals("PriorityTier", f.PriorityTier).
		WhereEquals("Status", f.Status).
		WhereEquals("Source", f.Source).
		WhereEquals("ClientCode", f.ClientCode).
		WhereEquals("DocumentType", f.DocumentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	set := func(name string, dst **string) {
		if v := values.Get(name); v != "" {
			*dst = &v
		}
	}

	set("route_tag", &f.RouteTag)
	set("priority_tier", &f.PriorityTier)
	set("status", &f.Status)
	set("source", &f.Source)
	set("client_code", &f.ClientCode)
	set("document_type", &f.DocumentType)
	return f
}
