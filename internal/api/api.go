// Package api assembles the read-only HTTP surface: health probes and the
// route record endpoints.
package api

import (
	"net/http"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/pkg/middleware"
)

// NewHandler creates the HTTP handler with all domain routes and middleware.
func NewHandler(cfg *config.Config, runtime *Runtime, domain *Domain) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, cfg, runtime, domain)

	mw := middleware.New()
	mw.Use(middleware.Recover(runtime.Logger))
	mw.Use(middleware.Logger(runtime.Logger))

	return mw.Apply(mux)
}
