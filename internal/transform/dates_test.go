// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var processingTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestParseDetectionDateStrictLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15 08:30:00", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/03/2024 08:30", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{"15-03-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, fallback := parseDetectionDate(tt.in, processingTime)
		assert.False(t, fallback, "input %q should parse", tt.in)
		assert.True(t, got.Equal(tt.want), "input %q: got %v, want %v", tt.in, got, tt.want)
	}
}

func TestParseDetectionDateTokenCascade(t *testing.T) {
	// Layouts the strict pass does not know still yield day/month/year
	// from the first three tokens.
	got, fallback := parseDetectionDate("5/3/2024", processingTime)
	assert.False(t, fallback)
	assert.Equal(t, 5, got.Day())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 2024, got.Year())

	got, fallback = parseDetectionDate("05 03 24 extra tokens", processingTime)
	assert.False(t, fallback)
	assert.Equal(t, 2024, got.Year(), "two-digit years are 2000-based")
}

func TestParseDetectionDateFallback(t *testing.T) {
	inputs := []string{"", "soon", "99/99/9999", "31/02/2024", "12/xx/2024"}
	for _, in := range inputs {
		got, fallback := parseDetectionDate(in, processingTime)
		assert.True(t, fallback, "input %q should fall back", in)
		assert.True(t, got.Equal(processingTime), "input %q falls back to processing time", in)
	}
}

func TestParseDetectionDateDeterministic(t *testing.T) {
	// The same malformed input always yields the same result for a given
	// processing time.
	first, _ := parseDetectionDate("not a date", processingTime)
	for i := 0; i < 10; i++ {
		again, _ := parseDetectionDate("not a date", processingTime)
		assert.True(t, again.Equal(first))
	}
}
