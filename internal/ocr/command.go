package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/docket/internal/config"
)

type command struct {
	argv     []string
	language string
	output   string
	timeout  time.Duration
	logger   *slog.Logger
}

func newCommand(cfg *config.OCRConfig, logger *slog.Logger) *command {
	return &command{
		argv:     cfg.Command,
		language: cfg.Language,
		output:   cfg.Output,
		timeout:  cfg.TimeoutDuration(),
		logger:   logger,
	}
}

// args substitutes whole-argument placeholders. Arguments are passed to
// the program directly, never through a shell.
func (c *command) args(path string) []string {
	out := make([]string, len(c.argv))
	for i, a := range c.argv {
		switch a {
		case "{path}":
			out[i] = path
		case "{lang}":
			out[i] = c.language
		default:
			out[i] = a
		}
	}
	return out
}

func (c *command) Extract(ctx context.Context, imagePath string) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	argv := c.args(imagePath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, failure("%s timed out after %v", argv[0], c.timeout)
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, failure("%s: %v: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}

	var result Result
	if c.output == "tsv" {
		result = ParseTSV(stdout.Bytes())
	} else {
		result = Result{Text: strings.TrimSpace(stdout.String()), Confidence: NoConfidence}
	}
	result.PageCount = 1

	c.logger.Debug("ocr complete",
		"path", imagePath,
		"chars", len(result.Text),
		"confidence", result.Confidence,
		"duration", time.Since(start),
	)
	return result, nil
}

// ParseTSV reads tesseract TSV output. Words are joined with spaces and
// lines break when the block, paragraph or line number changes. Confidence
// is the mean of the word confidences scaled to [0, 1]; rows with a
// negative confidence are structural and ignored.
func ParseTSV(data []byte) Result {
	const (
		colBlock = 2
		colPar   = 3
		colLine  = 4
		colConf  = 10
		colText  = 11
	)

	var (
		b       strings.Builder
		sum     float64
		words   int
		lastKey string
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			if strings.HasPrefix(scanner.Text(), "level") {
				continue
			}
		}

		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) <= colText {
			continue
		}
		conf, err := strconv.ParseFloat(cols[colConf], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[colText])
		if word == "" {
			continue
		}

		key := cols[colBlock] + "." + cols[colPar] + "." + cols[colLine]
		switch {
		case b.Len() == 0:
		case key != lastKey:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		lastKey = key
		b.WriteString(word)

		sum += conf
		words++
	}

	if words == 0 {
		return Result{Confidence: NoConfidence}
	}
	return Result{
		Text:       b.String(),
		Confidence: min(max(sum/float64(words)/100, 0), 1),
	}
}
