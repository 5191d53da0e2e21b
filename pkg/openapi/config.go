package openapi

import "os"

// Config is the [api.openapi] section: the info block of the document
// served at /api/openapi.json. Version pins the document version
// independently of the binary; when empty the build version is used.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Version     string `toml:"version"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
	Version     string
}

// Finalize applies defaults and environment variable overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Docket API"
	}
	if c.Description == "" {
		c.Description = "Read access to document routing records and the archive mirror."
	}
	if env != nil {
		override(env.Title, &c.Title)
		override(env.Description, &c.Description)
		override(env.Version, &c.Version)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for _, f := range []struct{ dst, src *string }{
		{&c.Title, &overlay.Title},
		{&c.Description, &overlay.Description},
		{&c.Version, &overlay.Version},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

// version returns the pinned document version or fallback.
func (c *Config) version(fallback string) string {
	if c.Version != "" {
		return c.Version
	}
	return fallback
}

func override(name string, dst *string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
