package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/openapi"
	"github.com/JaimeStill/docket/pkg/routes"
	"github.com/JaimeStill/docket/pkg/storage"
)

type archiveStatus struct {
	Key      string `json:"key"`
	Exists   bool   `json:"exists"`
	Provider string `json:"provider"`
}

var archiveSchemas = map[string]*openapi.Schema{
	"ArchiveStatus": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"key":      {Type: "string"},
			"exists":   {Type: "boolean"},
			"provider": {Type: "string", Enum: []any{storage.ProviderLocal, storage.ProviderAzure, storage.ProviderGCS}},
		},
	},
}

type archiveHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newArchiveHandler(store storage.System, logger *slog.Logger) *archiveHandler {
	return &archiveHandler{
		store:  store,
		logger: logger.With("handler", "archive"),
	}
}

func (h *archiveHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/archive",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.find, OpenAPI: &openapi.Operation{
				Summary:    "Check whether an artifact is mirrored",
				Tags:       []string{"archive"},
				Parameters: []*openapi.Parameter{openapi.PathParam("key", "Object key under the archive prefix")},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Artifact is mirrored", "ArchiveStatus"),
					400: openapi.ResponseRef("BadRequest"),
					404: openapi.ResponseJSON("Artifact is not mirrored", "ArchiveStatus"),
				},
			}},
		},
	}
}

func (h *archiveHandler) find(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	exists, err := h.store.Exists(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if !exists {
		status = http.StatusNotFound
	}
	handlers.RespondJSON(w, status, archiveStatus{
		Key:      key,
		Exists:   exists,
		Provider: h.store.Provider(),
	})
}
