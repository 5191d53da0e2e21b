package api

import (
	"github.com/JaimeStill/docket/internal/records"
)

// Domain holds the domain systems exposed by the API.
type Domain struct {
	Records records.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Records: records.New(
			runtime.Database,
			runtime.Logger,
			runtime.Pagination,
		),
	}
}
