package classify_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/docket/internal/classify"
	"github.com/JaimeStill/docket/internal/config"
)

func defaultClassifier(t *testing.T, minConfidence float64) *classify.Classifier {
	t.Helper()
	cfg := config.ClassificationConfig{
		MinConfidence: &minConfidence,
		Rules: config.Rules{
			FallbackTag: "Misc",
			Routes: []config.RouteRule{
				{Tag: "AP", Keywords: []string{"invoice", "purchase order", "vendor", "bill to"}},
				{Tag: "AR", Keywords: []string{"receipt", "payment received", "remittance"}},
			},
			Priorities: []config.PriorityRule{
				{Tier: "P3"},
				{Tier: "P2", Keywords: []string{"invoice", "statement"}},
				{Tier: "P1", Keywords: []string{"urgent", "overdue", "past due", "final notice"}},
			},
		},
	}
	c, err := classify.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClassify(t *testing.T) {
	c := defaultClassifier(t, 0.6)

	tests := []struct {
		name       string
		text       string
		route      string
		tier       string
		confidence float64
		fallback   bool
	}{
		{"invoice past due", "INVOICE #4411\nAmount PAST DUE", "AP", "P1", 0.8, false},
		{"invoice only", "Invoice for services", "AP", "P2", 0.8, false},
		{"receipt", "Payment received, thank you", "AR", "P3", 0.8, false},
		{"first route wins", "receipt attached to invoice", "AP", "P2", 0.8, false},
		{"no match", "hello world", "Misc", "P3", 0.2, true},
		{"priority without route", "urgent: call me", "Misc", "P1", 0.2, true},
		{"empty text", "", "Misc", "P3", 0.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.RouteTag != tt.route {
				t.Errorf("route = %s, want %s", got.RouteTag, tt.route)
			}
			if got.PriorityTier != tt.tier {
				t.Errorf("tier = %s, want %s", got.PriorityTier, tt.tier)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			if got.Fallback != tt.fallback {
				t.Errorf("fallback = %v, want %v", got.Fallback, tt.fallback)
			}
		})
	}
}

func TestPriorityRankOrder(t *testing.T) {
	c := defaultClassifier(t, 0.5)

	// P2 keyword appears first in the text and P2 is declared before P1
	got := c.Classify("statement of account. overdue balance")
	if got.PriorityTier != "P1" {
		t.Errorf("tier = %s, want P1", got.PriorityTier)
	}
}

func TestNumericRank(t *testing.T) {
	cfg := config.ClassificationConfig{
		MinConfidence: new(0.5),
		Rules: config.Rules{
			FallbackTag: "Misc",
			Priorities: []config.PriorityRule{
				{Tier: "P10", Keywords: []string{"later"}},
				{Tier: "P2", Keywords: []string{"later"}},
			},
		},
	}
	c, err := classify.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Classify("later").PriorityTier; got != "P2" {
		t.Errorf("tier = %s, want P2", got)
	}
	if got := c.Classify("nothing").PriorityTier; got != "P10" {
		t.Errorf("lowest tier = %s, want P10", got)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := defaultClassifier(t, 0.5)
	text := "Final notice: invoice overdue"

	first := c.Classify(text)
	c.Classify("receipt")
	second := c.Classify(text)

	if first.RouteTag != second.RouteTag ||
		first.PriorityTier != second.PriorityTier ||
		first.Confidence != second.Confidence ||
		!slices.Equal(first.MatchedKeywords, second.MatchedKeywords) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestMatchedKeywords(t *testing.T) {
	c := defaultClassifier(t, 0.5)

	got := c.Classify("invoice overdue")
	want := []string{"invoice", "overdue"}
	if !slices.Equal(got.MatchedKeywords, want) {
		t.Errorf("matched = %v, want %v", got.MatchedKeywords, want)
	}

	got = c.Classify("invoice")
	if !slices.Equal(got.MatchedKeywords, []string{"invoice"}) {
		t.Errorf("shared keyword should be listed once, got %v", got.MatchedKeywords)
	}
}

func TestPassesBoundary(t *testing.T) {
	c := defaultClassifier(t, 0.6)

	if !c.Passes(0.6) {
		t.Error("confidence equal to threshold should pass")
	}
	if c.Passes(0.59999) {
		t.Error("confidence below threshold should not pass")
	}
	if c.Passes(c.Classify("no keywords").Confidence) {
		t.Error("fallback confidence 0.2 should not pass threshold 0.6")
	}
}

func TestZeroThresholdPassesEverything(t *testing.T) {
	c := defaultClassifier(t, 0)

	if c.MinConfidence() != 0 {
		t.Errorf("threshold = %v, want 0", c.MinConfidence())
	}
	if !c.Passes(classify.Gating(c.Classify("no keywords").Confidence, 0)) {
		t.Error("threshold 0 should pass a zero gating confidence")
	}
}

func TestGating(t *testing.T) {
	tests := []struct {
		class, ocr, want float64
	}{
		{0.8, -1, 0.8},
		{0.8, 0.95, 0.8},
		{0.8, 0.4, 0.4},
		{0.2, 0, 0},
	}
	for _, tt := range tests {
		if got := classify.Gating(tt.class, tt.ocr); got != tt.want {
			t.Errorf("Gating(%v, %v) = %v, want %v", tt.class, tt.ocr, got, tt.want)
		}
	}
}

func TestKnownTags(t *testing.T) {
	c := defaultClassifier(t, 0.5)

	for _, tag := range []string{"AP", "AR", "Misc"} {
		if !c.Known(tag) {
			t.Errorf("%s should be known", tag)
		}
	}
	if c.Known("HR") {
		t.Error("HR should not be known")
	}
}

func TestInvalidTier(t *testing.T) {
	cfg := config.ClassificationConfig{
		Rules: config.Rules{FallbackTag: "Misc", Priorities: []config.PriorityRule{{Tier: "High"}}},
	}
	if _, err := classify.New(cfg); err == nil {
		t.Error("expected error for non-numeric tier")
	}
}
