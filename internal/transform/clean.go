// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transform

import (
	"math"
	"strconv"
	"strings"
)

const (
	subScoreMin     = 1
	subScoreMax     = 5
	subScoreDefault = "1"
)

// cleanText strips C0/C1 control characters, collapses whitespace runs to
// a single space, and trims. Control characters become spaces first so
// words separated by tabs or newlines do not run together.
func cleanText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// normalizeSubScore coerces a raw criticality sub-score cell to a numeric
// string in [1,5]. An absent or non-numeric cell defaults to "1";
// out-of-range values are clamped. repaired reports whether the value had
// to be defaulted or clamped.
func normalizeSubScore(raw string) (score string, repaired bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return subScoreDefault, true
	}

	// Cells occasionally arrive as decimals ("3.0") or with a comma
	// decimal separator.
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return subScoreDefault, true
	}

	n := int(math.Round(f))
	switch {
	case n < subScoreMin:
		return strconv.Itoa(subScoreMin), true
	case n > subScoreMax:
		return strconv.Itoa(subScoreMax), true
	}
	return strconv.Itoa(n), f != float64(n)
}
