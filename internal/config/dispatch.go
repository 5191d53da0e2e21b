package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvDispatchEndpoint   = "DOCKET_DISPATCH_ENDPOINT"
	EnvDispatchTimeout    = "DOCKET_DISPATCH_TIMEOUT"
	EnvDispatchMaxRetries = "DOCKET_DISPATCH_MAX_RETRIES"
	EnvDispatchBackoff    = "DOCKET_DISPATCH_BACKOFF"
)

// DispatchConfig configures the optional remote worker. An empty Endpoint
// disables dispatch and every item keeps its local classification.
type DispatchConfig struct {
	Endpoint   string `toml:"endpoint"`
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
	Backoff    string `toml:"backoff"`
}

// Enabled reports whether a remote worker is configured.
func (c *DispatchConfig) Enabled() bool {
	return c.Endpoint != ""
}

// TimeoutDuration returns the per-attempt timeout.
func (c *DispatchConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// BackoffDuration returns the base backoff between attempts.
func (c *DispatchConfig) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.Backoff)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DispatchConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Backoff == "" {
		c.Backoff = "3s"
	}

	if v := os.Getenv(EnvDispatchEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvDispatchTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvDispatchMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv(EnvDispatchBackoff); v != "" {
		c.Backoff = v
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", c.Endpoint)
		}
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout %q", c.Timeout)
	}
	if d, err := time.ParseDuration(c.Backoff); err != nil || d < 0 {
		return fmt.Errorf("invalid backoff %q", c.Backoff)
	}
	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 1 and 10")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *DispatchConfig) Merge(overlay *DispatchConfig) {
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.Backoff != "" {
		c.Backoff = overlay.Backoff
	}
}
