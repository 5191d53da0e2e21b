package config

import (
	"fmt"
	"os"
	"slices"
	"time"
)

// OCR engines.
const (
	OCREngineCommand   = "command"
	OCREngineTesseract = "tesseract"
)

// OCRConfig selects the text extraction engine.
//
// The command engine runs Command as an argv vector without a shell. An
// argument equal to "{path}" is replaced by the image path and "{lang}" by
// Language; placeholders embedded inside longer arguments are not expanded.
// Output is "tsv" (tesseract word table with confidences) or "text".
type OCRConfig struct {
	Engine   string   `toml:"engine"`
	Command  []string `toml:"command"`
	Output   string   `toml:"output"`
	Timeout  string   `toml:"timeout"`
	Language string   `toml:"language"`
	DPI      int      `toml:"dpi"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *OCRConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *OCRConfig) Finalize() error {
	if v := os.Getenv("DOCKET_OCR_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := os.Getenv("DOCKET_OCR_LANGUAGE"); v != "" {
		c.Language = v
	}

	if c.Engine == "" {
		c.Engine = OCREngineCommand
	}
	if c.Command == nil {
		c.Command = []string{"tesseract", "{path}", "stdout", "-l", "{lang}", "tsv"}
	}
	if c.Output == "" {
		c.Output = "tsv"
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI == 0 {
		c.DPI = 300
	}

	switch c.Engine {
	case OCREngineCommand:
		if len(c.Command) == 0 || !slices.Contains(c.Command, "{path}") {
			return fmt.Errorf("command must include a {path} argument")
		}
	case OCREngineTesseract:
	default:
		return fmt.Errorf("unsupported engine %q", c.Engine)
	}
	if c.Output != "tsv" && c.Output != "text" {
		return fmt.Errorf("unsupported output %q", c.Output)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 72 and 1200")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *OCRConfig) Merge(overlay *OCRConfig) {
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.Command != nil {
		c.Command = overlay.Command
	}
	if overlay.Output != "" {
		c.Output = overlay.Output
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Language != "" {
		c.Language = overlay.Language
	}
	if overlay.DPI != 0 {
		c.DPI = overlay.DPI
	}
}
