package storage

import (
	"fmt"
	"os"
)

// Providers for the archive mirror. An empty provider disables mirroring.
const (
	ProviderNone  = ""
	ProviderAzure = "azure"
	ProviderGCS   = "gcs"
	ProviderLocal = "local"
)

// Config selects and parameterizes the archive mirror backend.
//
// Azure authenticates with ConnectionString when set, otherwise with the
// default Azure credential chain against ServiceURL. GCS uses application
// default credentials. Container names the Azure container or GCS bucket.
type Config struct {
	Provider         string `toml:"provider"`
	Container        string `toml:"container"`
	Prefix           string `toml:"prefix"`
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
	Path             string `toml:"path"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	Container        string
	Prefix           string
	ConnectionString string
	ServiceURL       string
	Path             string
}

// Enabled reports whether a mirror backend is configured.
func (c *Config) Enabled() bool {
	return c.Provider != ProviderNone
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == ProviderNone {
		return
	}
	if c.Container == "" {
		c.Container = "docket-archive"
	}
	if c.Provider == ProviderLocal && c.Path == "" {
		c.Path = "archive"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	set(env.Provider, &c.Provider)
	set(env.Container, &c.Container)
	set(env.Prefix, &c.Prefix)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.ServiceURL, &c.ServiceURL)
	set(env.Path, &c.Path)
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderNone, ProviderGCS, ProviderLocal:
		return nil
	case ProviderAzure:
		if c.ConnectionString == "" && c.ServiceURL == "" {
			return fmt.Errorf("connection_string or service_url required for azure")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage provider %q", c.Provider)
	}
}
