package api

import (
	"net/http"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/records"
	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/openapi"
	"github.com/JaimeStill/docket/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	cfg *config.Config,
	runtime *Runtime,
	domain *Domain,
) {
	routes.Register(mux, "", probes(runtime))

	groups := []routes.Group{domain.Records.Handler().Routes()}
	if runtime.Storage != nil {
		groups = append(groups, newArchiveHandler(runtime.Storage, runtime.Logger).routes())
	}
	routes.Register(mux, cfg.API.BasePath, groups...)

	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version)
	spec.Components.AddSchemas(records.Schemas())
	if runtime.Storage != nil {
		spec.Components.AddSchemas(archiveSchemas)
	}
	routes.Describe(spec, cfg.API.BasePath, groups...)

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		runtime.Logger.Error("openapi marshal failed", "error", err)
		return
	}
	mux.HandleFunc("GET "+cfg.API.BasePath+"/openapi.json", openapi.ServeSpec(data))
}

func probes(runtime *Runtime) routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/healthz", Handler: func(w http.ResponseWriter, r *http.Request) {
				handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			}},
			{Method: "GET", Pattern: "/readyz", Handler: func(w http.ResponseWriter, r *http.Request) {
				if !runtime.Lifecycle.Ready() {
					handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
					return
				}
				handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			}},
		},
	}
}
