package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/docket/pkg/openapi"
	"github.com/JaimeStill/docket/pkg/pagination"
)

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "DOCKET_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "DOCKET_PAGINATION_MAX_PAGE_SIZE",
	MaxSearchLength: "DOCKET_PAGINATION_MAX_SEARCH_LENGTH",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "DOCKET_OPENAPI_TITLE",
	Description: "DOCKET_OPENAPI_DESCRIPTION",
	Version:     "DOCKET_OPENAPI_VERSION",
}

// APIConfig holds the read API base path, pagination limits and the
// metadata of the served OpenAPI document.
type APIConfig struct {
	BasePath   string            `toml:"base_path"`
	Pagination pagination.Config `toml:"pagination"`
	OpenAPI    openapi.Config    `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if v := os.Getenv("DOCKET_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if !strings.HasPrefix(c.BasePath, "/") || strings.HasSuffix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start and not end with /: %q", c.BasePath)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}
