package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencySymbolRe = regexp.MustCompile(`[$£€¥]`)
	currencyCodeRe   = regexp.MustCompile(`(?i)\s*(USD|EUR|GBP|CAD|AUD)\s*`)
	quantityLetterRe = regexp.MustCompile(`(?i)x`)
	quantityPrefixRe = regexp.MustCompile(`(?i)^qty:?\s*`)
)

// stripSpoiler removes a wrapping spoiler tag (||value||) and trims the
// result. Values not wrapped by a matching pair are returned trimmed as-is.
func stripSpoiler(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.HasPrefix(s, "||") && strings.HasSuffix(s, "||") {
		return strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}

// parsePrice normalizes a price value: spoiler tags, currency symbols, commas
// and ISO currency codes are stripped before parsing. Unparseable input yields 0.
func parsePrice(s string) float64 {
	s = stripSpoiler(s)
	s = currencySymbolRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = currencyCodeRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseQuantity normalizes a quantity value like "x3" or "Qty: 5".
// Unparseable or non-positive input yields 1.
func parseQuantity(s string) int {
	s = quantityLetterRe.ReplaceAllString(s, "")
	s = quantityPrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
