package stamp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JaimeStill/docket/internal/fingerprint"
)

// Payload is the tracking data embedded in every filed artifact.
type Payload struct {
	Fingerprint fingerprint.Fingerprint
	RouteTag    string
	Timestamp   time.Time
}

type wirePayload struct {
	Fingerprint string `json:"fp"`
	RouteTag    string `json:"route"`
	Timestamp   string `json:"ts"`
}

// NewPayload builds a payload with the timestamp normalized to UTC seconds
// so that it survives a marshal round trip unchanged.
func NewPayload(fp fingerprint.Fingerprint, routeTag string, ts time.Time) Payload {
	return Payload{
		Fingerprint: fp,
		RouteTag:    routeTag,
		Timestamp:   ts.UTC().Truncate(time.Second),
	}
}

// Marshal encodes p as compact JSON with a fixed key order.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(wirePayload{
		Fingerprint: p.Fingerprint.String(),
		RouteTag:    p.RouteTag,
		Timestamp:   p.Timestamp.UTC().Format(time.RFC3339),
	})
}

// Equal compares every field, timestamps by instant.
func (p Payload) Equal(other Payload) bool {
	return p.Fingerprint == other.Fingerprint &&
		p.RouteTag == other.RouteTag &&
		p.Timestamp.Equal(other.Timestamp)
}

// ParsePayload decodes and validates a marshaled payload.
func ParsePayload(data []byte) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return Payload{}, fmt.Errorf("parse stamp payload: %w", err)
	}

	fp, err := fingerprint.Parse(w.Fingerprint)
	if err != nil {
		return Payload{}, fmt.Errorf("parse stamp payload: %w", err)
	}
	if w.RouteTag == "" {
		return Payload{}, fmt.Errorf("parse stamp payload: missing route")
	}
	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		return Payload{}, fmt.Errorf("parse stamp payload: %w", err)
	}

	return Payload{Fingerprint: fp, RouteTag: w.RouteTag, Timestamp: ts.UTC()}, nil
}
