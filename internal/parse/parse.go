// Package parse normalizes the messy human-entered strings found on
// qualification test reports into canonical numeric or categorical form.
// Parsers report "no value" rather than erroring: an unparseable field
// simply contributes nothing to derivation.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// `2.875" OD`, `1 in OD`, `1-1/2" OD` — explicit outer-diameter
	// annotation. The figure alternation puts mixed number and fraction
	// before decimal so `1-1/2` cannot be misread as its denominator.
	odRe = regexp.MustCompile(`(?i)((?:\d+\s*-\s*)?\d+\s*/\s*\d+|\d+(?:\.\d+)?)\s*(?:"|in\.?|inch(?:es)?)?\s*OD`)
	// `2-7/8` — mixed number.
	mixedRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s*/\s*(\d+)$`)
	// `7/8` — bare fraction.
	fractionRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	// `2.875`, `6` — bare decimal, possibly with a trailing unit.
	decimalRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:"|in\.?|inch(?:es)?)?$`)
)

// Diameter extracts a pipe outer diameter in inches from free text.
// It tries, in order: an explicit OD annotation, a mixed-number fraction,
// a bare fraction, then a bare decimal. Returns false (not an error)
// when the text is empty or unparseable.
func Diameter(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}

	if m := odRe.FindStringSubmatch(s); m != nil {
		if v, ok := number(m[1]); ok {
			return v, true
		}
	}

	if m := decimalRe.FindStringSubmatch(s); m != nil {
		return number(m[1])
	}

	return number(s)
}

// number parses one diameter figure: mixed number, bare fraction, or
// decimal, with no surrounding text or units.
func number(s string) (float64, bool) {
	if m := mixedRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den != 0 {
			return whole + num/den, true
		}
		return 0, false
	}

	if m := fractionRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 {
			return num / den, true
		}
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// Position canonicalizes a test position code ("6g " -> "6G").
// Returns false for empty input.
func Position(text string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(text))
	return s, s != ""
}

// noBackingPhrases are the markers that a coupon was welded open-root,
// i.e. without backing.
var noBackingPhrases = []string{
	"no backing",
	"open root",
	"without",
	"n/a",
	"none",
	"single sided",
}

// HasBacking scans a backing description for the fixed no-backing
// phrases. Blank text or text matching none of them defaults to true:
// assuming backing was present yields the narrower production
// qualification, which is the safe reading for a compliance record.
func HasBacking(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return true
	}
	for _, phrase := range noBackingPhrases {
		if strings.Contains(s, phrase) {
			return false
		}
	}
	return true
}
