package classify

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Metadata holds descriptive fields extracted from document text.
type Metadata struct {
	DocumentType string   `json:"document_type"`
	Vendor       string   `json:"vendor,omitempty"`
	Amount       string   `json:"amount,omitempty"`
	Identifiers  []string `json:"identifiers,omitempty"`
	Dates        []string `json:"dates,omitempty"`
}

// DefaultDocumentType is reported when no document type keyword matches.
const DefaultDocumentType = "document"

const maxVendorLen = 128

var documentTypes = []struct {
	name     string
	keywords []string
}{
	{"invoice", []string{"invoice", "inv#"}},
	{"receipt", []string{"receipt", "thanks for your purchase"}},
	{"purchase_order", []string{"purchase order", "po #", "po#"}},
	{"statement", []string{"statement", "balance forward"}},
}

var (
	amountPattern = regexp.MustCompile(`\$\s?-?\d{1,3}(?:,\d{3})*(?:\.\d{2})?|-?\d{1,3}(?:,\d{3})*\.\d{2}\b`)

	identifierPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bINV[- ]?\d{4,}\b`),
		regexp.MustCompile(`(?i)\bPO[- ]?\d{4,}\b`),
		regexp.MustCompile(`\b\d{8,}\b`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]{3,}\s+\d{4}\b`),
	}

	letters = regexp.MustCompile(`[A-Za-z]{2,}`)
)

// ExtractMetadata scans text for a document type, vendor line, largest
// currency amount, reference identifiers and dates.
func ExtractMetadata(text string) Metadata {
	return Metadata{
		DocumentType: documentType(strings.ToLower(text)),
		Vendor:       vendor(text),
		Amount:       amount(text),
		Identifiers:  findAll(text, identifierPatterns),
		Dates:        findAll(text, datePatterns),
	}
}

// Attributes flattens m into record attribute keys.
func (m Metadata) Attributes() map[string]string {
	attrs := map[string]string{"document_type": m.DocumentType}
	if m.Amount != "" {
		attrs["amount"] = m.Amount
	}
	if m.Vendor != "" {
		attrs["vendor"] = m.Vendor
	}
	if len(m.Identifiers) > 0 {
		attrs["identifiers"] = strings.Join(m.Identifiers, ";")
	}
	if len(m.Dates) > 0 {
		attrs["dates"] = strings.Join(m.Dates, ";")
	}
	return attrs
}

func documentType(lower string) string {
	for _, dt := range documentTypes {
		if _, ok := match(lower, dt.keywords); ok {
			return dt.name
		}
	}
	return DefaultDocumentType
}

func vendor(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if strings.Contains(lower, "invoice") || strings.Contains(lower, "bill") || strings.Contains(lower, "statement") {
			continue
		}
		if len(line) > 4 && letters.MatchString(line) {
			if len(line) > maxVendorLen {
				line = strings.ToValidUTF8(line[:maxVendorLen], "")
			}
			return line
		}
	}
	return ""
}

func amount(text string) string {
	var best float64
	found := false
	for _, m := range amountPattern.FindAllString(text, -1) {
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(m)
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	if !found {
		return ""
	}
	return strconv.FormatFloat(best, 'f', 2, 64)
}

func findAll(text string, patterns []*regexp.Regexp) []string {
	var out []string
	for _, p := range patterns {
		for _, m := range p.FindAllString(text, -1) {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out
}
