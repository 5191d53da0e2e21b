package config

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/docket/pkg/formatting"
)

const (
	EnvIntakeDir           = "DOCKET_INTAKE_DIR"
	EnvIntakeProcessedDir  = "DOCKET_INTAKE_PROCESSED_DIR"
	EnvIntakePollInterval  = "DOCKET_INTAKE_POLL_INTERVAL"
	EnvIntakeStabilityWait = "DOCKET_INTAKE_STABILITY_WAIT"
	EnvIntakeWorkers       = "DOCKET_INTAKE_WORKERS"
	EnvIntakeAuditLog      = "DOCKET_INTAKE_AUDIT_LOG"
)

// IntakeConfig describes the directory layout, polling cadence and the
// per-item processing parameters of the intake pipeline.
type IntakeConfig struct {
	Dir              string            `toml:"dir"`
	ProcessedDir     string            `toml:"processed_dir"`
	NeedsReviewDir   string            `toml:"needs_review_dir"`
	DuplicateHoldDir string            `toml:"duplicate_hold_dir"`
	ReviewDir        string            `toml:"review_dir"`
	StagingDir       string            `toml:"staging_dir"`
	PollInterval     string            `toml:"poll_interval"`
	StabilityWait    string            `toml:"stability_wait"`
	Extensions       []string          `toml:"extensions"`
	MaxFileSize      string            `toml:"max_file_size"`
	Workers          int               `toml:"workers"`
	RouteDirs        map[string]string `toml:"route_dirs"`

	FingerprintAlgorithm string  `toml:"fingerprint_algorithm"`
	FingerprintPrefix    int     `toml:"fingerprint_prefix"`
	StampScale           float64 `toml:"stamp_scale"`
	InsertTimeout        string  `toml:"insert_timeout"`

	AuditLog          string   `toml:"audit_log"`
	AuditColumns      []string `toml:"audit_columns"`
	DefaultClientCode string   `toml:"default_client_code"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *IntakeConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// StabilityWaitDuration returns StabilityWait as a time.Duration.
func (c *IntakeConfig) StabilityWaitDuration() time.Duration {
	d, _ := time.ParseDuration(c.StabilityWait)
	return d
}

// InsertTimeoutDuration returns InsertTimeout as a time.Duration.
func (c *IntakeConfig) InsertTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.InsertTimeout)
	return d
}

// MaxFileSizeBytes returns MaxFileSize in bytes.
func (c *IntakeConfig) MaxFileSizeBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxFileSize)
	if err != nil {
		return 100 << 20
	}
	return n
}

// RouteDir returns the directory name under ProcessedDir for tag.
// Unmapped tags file under a directory named after the tag.
func (c *IntakeConfig) RouteDir(tag string) string {
	if dir, ok := c.RouteDirs[tag]; ok && dir != "" {
		return dir
	}
	return tag
}

// Allowed reports whether ext (with leading dot) is an accepted extension.
func (c *IntakeConfig) Allowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IntakeConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Slices and maps replace wholesale.
func (c *IntakeConfig) Merge(overlay *IntakeConfig) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&c.Dir, overlay.Dir)
	str(&c.ProcessedDir, overlay.ProcessedDir)
	str(&c.NeedsReviewDir, overlay.NeedsReviewDir)
	str(&c.DuplicateHoldDir, overlay.DuplicateHoldDir)
	str(&c.ReviewDir, overlay.ReviewDir)
	str(&c.StagingDir, overlay.StagingDir)
	str(&c.PollInterval, overlay.PollInterval)
	str(&c.StabilityWait, overlay.StabilityWait)
	str(&c.MaxFileSize, overlay.MaxFileSize)
	str(&c.FingerprintAlgorithm, overlay.FingerprintAlgorithm)
	str(&c.InsertTimeout, overlay.InsertTimeout)
	str(&c.AuditLog, overlay.AuditLog)
	str(&c.DefaultClientCode, overlay.DefaultClientCode)

	if overlay.Extensions != nil {
		c.Extensions = overlay.Extensions
	}
	if overlay.AuditColumns != nil {
		c.AuditColumns = overlay.AuditColumns
	}
	if overlay.RouteDirs != nil {
		c.RouteDirs = maps.Clone(overlay.RouteDirs)
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.FingerprintPrefix != 0 {
		c.FingerprintPrefix = overlay.FingerprintPrefix
	}
	if overlay.StampScale != 0 {
		c.StampScale = overlay.StampScale
	}
}

func (c *IntakeConfig) loadDefaults() {
	if c.Dir == "" {
		c.Dir = "data/incoming"
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = "data/processed"
	}
	if c.NeedsReviewDir == "" {
		c.NeedsReviewDir = "data/needs_review"
	}
	if c.DuplicateHoldDir == "" {
		c.DuplicateHoldDir = "data/duplicate_hold"
	}
	if c.ReviewDir == "" {
		c.ReviewDir = "data/review"
	}
	if c.StagingDir == "" {
		c.StagingDir = "data/staging"
	}
	if c.PollInterval == "" {
		c.PollInterval = "10s"
	}
	if c.StabilityWait == "" {
		c.StabilityWait = "2s"
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff"}
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "100MB"
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.FingerprintAlgorithm == "" {
		c.FingerprintAlgorithm = "sha256"
	}
	if c.FingerprintPrefix == 0 {
		c.FingerprintPrefix = 8
	}
	if c.StampScale == 0 {
		c.StampScale = 0.15
	}
	if c.InsertTimeout == "" {
		c.InsertTimeout = "30s"
	}
	if c.AuditLog == "" {
		c.AuditLog = "logs/audit.csv"
	}
	if c.AuditColumns == nil {
		c.AuditColumns = []string{
			"category", "fingerprint", "confidence", "ocr_confidence",
			"source", "document_type", "amount", "client_code",
		}
	}
	if c.DefaultClientCode == "" {
		c.DefaultClientCode = "GEN"
	}
}

func (c *IntakeConfig) loadEnv() {
	if v := os.Getenv(EnvIntakeDir); v != "" {
		c.Dir = v
	}
	if v := os.Getenv(EnvIntakeProcessedDir); v != "" {
		c.ProcessedDir = v
	}
	if v := os.Getenv(EnvIntakePollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvIntakeStabilityWait); v != "" {
		c.StabilityWait = v
	}
	if v := os.Getenv(EnvIntakeWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvIntakeAuditLog); v != "" {
		c.AuditLog = v
	}
}

func (c *IntakeConfig) validate() error {
	for name, dir := range map[string]string{
		"dir":                c.Dir,
		"processed_dir":      c.ProcessedDir,
		"needs_review_dir":   c.NeedsReviewDir,
		"duplicate_hold_dir": c.DuplicateHoldDir,
		"review_dir":         c.ReviewDir,
		"staging_dir":        c.StagingDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s required", name)
		}
	}

	for name, v := range map[string]string{
		"poll_interval":  c.PollInterval,
		"stability_wait": c.StabilityWait,
		"insert_timeout": c.InsertTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.PollIntervalDuration() == 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}

	if _, err := formatting.ParseBytes(c.MaxFileSize); err != nil {
		return fmt.Errorf("invalid max_file_size: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	switch c.FingerprintAlgorithm {
	case "sha256", "blake3":
	default:
		return fmt.Errorf("unsupported fingerprint_algorithm %q", c.FingerprintAlgorithm)
	}
	if c.FingerprintPrefix < 4 || c.FingerprintPrefix > 64 {
		return fmt.Errorf("fingerprint_prefix must be between 4 and 64")
	}
	if c.StampScale <= 0 || c.StampScale > 1 {
		return fmt.Errorf("stamp_scale must be in (0, 1]")
	}
	if c.AuditLog == "" {
		return fmt.Errorf("audit_log required")
	}
	for tag, dir := range c.RouteDirs {
		if dir == "" || strings.ContainsAny(dir, `/\`) || dir == "." || dir == ".." {
			return fmt.Errorf("route_dirs[%s]: invalid directory name %q", tag, dir)
		}
	}
	return nil
}
