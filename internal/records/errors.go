package records

import (
	"errors"
	"net/http"
)

// Domain errors for route record operations.
var (
	ErrNotFound = errors.New("route record not found")
	// ErrAlreadyRecorded is the authoritative duplicate signal: the
	// fingerprint already owns a record.
	ErrAlreadyRecorded  = errors.New("fingerprint already recorded")
	ErrInvalidRecord    = errors.New("invalid route record")
	ErrInvalidAttribute = errors.New("invalid record attribute")
)

// MapHTTPStatus maps record domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrAlreadyRecorded) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrInvalidAttribute) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
