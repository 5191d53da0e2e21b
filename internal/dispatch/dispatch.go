// Package dispatch hands stamped artifacts to an optional remote worker for
// reclassification and renaming. The worker is an optimization: every
// failure mode resolves to a Result the caller can fall back from.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/pkg/formatting"
)

// Status is the outcome class of a dispatch.
type Status string

const (
	StatusOK          Status = "ok"
	StatusTimeout     Status = "timeout"
	StatusUnavailable Status = "unavailable"
)

// maxResponseSize bounds the worker response body.
const maxResponseSize = 1 << 20

// Request is the metadata sent alongside the artifact.
type Request struct {
	Fingerprint      string  `json:"fingerprint"`
	RouteTag         string  `json:"route_tag"`
	PriorityTier     string  `json:"priority_tier"`
	Confidence       float64 `json:"confidence"`
	OriginalFilename string  `json:"original_filename"`
	DocumentType     string  `json:"document_type,omitempty"`
	Amount           string  `json:"amount,omitempty"`
}

// Response is the worker's answer. Empty FinalFilename and NamingConvention
// leave the local filename in place.
type Response struct {
	Route            string         `json:"route"`
	FinalFilename    string         `json:"final_filename,omitempty"`
	NamingConvention string         `json:"naming_convention,omitempty"`
	Metadata         map[string]any `json:"metadata"`
}

// Result reports how a dispatch ended. Response is set only for StatusOK.
type Result struct {
	Status   Status
	Response *Response
	Attempts int
	Err      error
}

// Dispatcher sends one artifact to the remote worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, artifactPath string, req Request) Result
}

type client struct {
	endpoint   string
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// New creates a Dispatcher for cfg. It returns nil when dispatch is disabled.
func New(cfg *config.DispatchConfig, logger *slog.Logger) Dispatcher {
	if !cfg.Enabled() {
		return nil
	}
	return &client{
		endpoint:   cfg.Endpoint,
		http:       &http.Client{},
		timeout:    cfg.TimeoutDuration(),
		maxRetries: max(cfg.MaxRetries, 1),
		backoff:    cfg.BackoffDuration(),
		logger:     logger.With("system", "dispatch"),
	}
}

// Backoff returns the wait after failed attempt n (1-based): base * 2^(n-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Dispatch retries failed attempts up to the configured count with
// exponential backoff. Cancelling ctx stops immediately and returns
// StatusUnavailable carrying the context error.
func (c *client) Dispatch(ctx context.Context, artifactPath string, req Request) Result {
	body, contentType, err := encode(artifactPath, req)
	if err != nil {
		return Result{Status: StatusUnavailable, Err: err}
	}

	var last Result
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		last = c.attempt(ctx, body, contentType)
		last.Attempts = attempt
		if last.Status == StatusOK {
			c.logger.Info("worker accepted artifact",
				"fingerprint", req.Fingerprint,
				"attempt", attempt,
				"route", last.Response.Route,
			)
			return last
		}
		if ctx.Err() != nil {
			return Result{Status: StatusUnavailable, Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == c.maxRetries {
			break
		}

		wait := Backoff(c.backoff, attempt)
		c.logger.Warn("worker attempt failed, will retry",
			"fingerprint", req.Fingerprint,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"status", last.Status,
			"backoff", wait,
			"error", last.Err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Result{Status: StatusUnavailable, Attempts: attempt, Err: ctx.Err()}
		}
	}

	c.logger.Warn("worker unavailable, keeping local classification",
		"fingerprint", req.Fingerprint,
		"status", last.Status,
		"error", last.Err,
	)
	return last
}

func (c *client) attempt(ctx context.Context, body []byte, contentType string) Result {
	actx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(actx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Status: StatusUnavailable, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{Status: classify(actx, err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{Status: classify(actx, err), Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Status: StatusUnavailable, Err: fmt.Errorf("worker returned %s", resp.Status)}
	}

	parsed, err := formatting.ParseJSON[Response](data)
	if err != nil {
		return Result{Status: StatusUnavailable, Err: err}
	}
	if parsed.Route == "" {
		return Result{Status: StatusUnavailable, Err: errors.New("worker response missing route")}
	}
	return Result{Status: StatusOK, Response: &parsed}
}

func classify(ctx context.Context, err error) Status {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	return StatusUnavailable
}

// encode builds the multipart body: a "file" part with the artifact and a
// "metadata" field with the JSON request.
func encode(artifactPath string, req Request) ([]byte, string, error) {
	meta, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("marshal metadata: %w", err)
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(artifactPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := w.WriteField("metadata", string(meta)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
