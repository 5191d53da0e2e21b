// Package classify assigns a route tag, priority tier and confidence to
// extracted document text using ordered keyword rules.
package classify

import (
	"errors"
	"slices"
	"strings"

	"github.com/JaimeStill/docket/internal/config"
)

// Confidence levels assigned by the classifier.
const (
	BaselineConfidence   = 0.2
	RouteMatchConfidence = 0.8
)

// ErrLowConfidence marks a classification below the gating threshold.
// It is a terminal needs-review outcome, not a failure.
var ErrLowConfidence = errors.New("classification confidence below threshold")

// Result is the outcome of classifying one document's text.
type Result struct {
	RouteTag        string   `json:"route_tag"`
	PriorityTier    string   `json:"priority_tier"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords"`
	Fallback        bool     `json:"fallback"`
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules         *ruleSet
	minConfidence float64
}

// New compiles the configured rule set.
func New(cfg config.ClassificationConfig) (*Classifier, error) {
	rules, err := compile(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &Classifier{rules: rules, minConfidence: cfg.Threshold()}, nil
}

// Classify is a pure function of text and the rule set.
//
// Routes are tried in configured order and the first with any matching
// keyword wins, raising confidence to RouteMatchConfidence. Priority tiers
// are tried in rank order, P1 first; with no match the lowest tier applies.
// Priority matching never changes confidence.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(text)

	result := Result{
		RouteTag:        c.rules.fallback,
		PriorityTier:    c.rules.lowest(),
		Confidence:      BaselineConfidence,
		MatchedKeywords: []string{},
		Fallback:        true,
	}

	for _, r := range c.rules.routes {
		if kw, ok := match(lower, r.keywords); ok {
			result.RouteTag = r.tag
			result.Fallback = false
			result.Confidence = max(result.Confidence, RouteMatchConfidence)
			result.MatchedKeywords = append(result.MatchedKeywords, kw)
			break
		}
	}

	for _, t := range c.rules.tiers {
		if kw, ok := match(lower, t.keywords); ok {
			result.PriorityTier = t.name
			if !slices.Contains(result.MatchedKeywords, kw) {
				result.MatchedKeywords = append(result.MatchedKeywords, kw)
			}
			break
		}
	}

	return result
}

// MinConfidence returns the gating threshold.
func (c *Classifier) MinConfidence() float64 {
	return c.minConfidence
}

// Passes reports whether confidence clears the threshold. Equality passes.
func (c *Classifier) Passes(confidence float64) bool {
	return confidence >= c.minConfidence
}

// Tags lists every route tag the classifier can produce.
func (c *Classifier) Tags() []string {
	return c.rules.tags()
}

// Known reports whether tag is a configured route or the fallback.
func (c *Classifier) Known(tag string) bool {
	return slices.Contains(c.rules.tags(), tag)
}

// Gating combines the classification confidence with the OCR confidence.
// The lower of the two gates the item. A negative OCR confidence means the
// engine reported none and is ignored.
func Gating(classification, ocr float64) float64 {
	if ocr < 0 {
		return classification
	}
	return min(classification, ocr)
}
