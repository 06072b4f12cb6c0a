// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transform

import (
	"strconv"
	"strings"
	"time"
)

// strictLayouts are tried in order before the token cascade. Day-first
// layouts come before equivalent orderings because the source sheets are
// French exports.
var strictLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
}

// dateSeparators splits the tolerant cascade's tokens.
func dateSeparators(r rune) bool {
	return r == '/' || r == '-' || r == ' ' || r == ':'
}

// parseDetectionDate parses a raw detection-date cell. It tries strict
// layouts first, then splits on /, -, space, or : and reads the first
// three tokens as day/month/year. Anything else falls back to now;
// fallback reports which branch was taken. The same malformed input
// always yields the same result for a given now.
func parseDetectionDate(raw string, now time.Time) (parsed time.Time, fallback bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now, true
	}

	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false
		}
	}

	tokens := strings.FieldsFunc(s, dateSeparators)
	if len(tokens) >= 3 {
		day, errD := strconv.Atoi(tokens[0])
		month, errM := strconv.Atoi(tokens[1])
		year, errY := strconv.Atoi(tokens[2])
		if errD == nil && errM == nil && errY == nil {
			if year < 100 {
				year += 2000
			}
			if day >= 1 && day <= 31 && month >= 1 && month <= 12 && year >= 1900 && year <= 2200 {
				t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
				// time.Date normalizes overflow (e.g. 31/02); reject
				// anything that moved.
				if t.Day() == day && int(t.Month()) == month {
					return t, false
				}
			}
		}
	}

	return now, true
}
