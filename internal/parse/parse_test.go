package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiameter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"explicit OD annotation", `2.875" OD`, 2.875, true},
		{"OD annotation with in unit", `6 in OD`, 6, true},
		{"OD annotation no space", `1"OD`, 1, true},
		{"OD annotation inside text", `sch 40 pipe, 2.375" OD`, 2.375, true},
		{"mixed number with OD annotation", `1-1/2" OD`, 1.5, true},
		{"fraction with OD annotation", `7/8" OD`, 0.875, true},
		{"mixed number", "2-7/8", 2.875, true},
		{"mixed number with spaces", "1 - 1/2", 1.5, true},
		{"bare fraction", "7/8", 0.875, true},
		{"bare fraction with spaces", "3 / 4", 0.75, true},
		{"bare decimal", "2.875", 2.875, true},
		{"bare integer", "6", 6, true},
		{"decimal with quote", `0.84"`, 0.84, true},
		{"decimal with in unit", "1.9 in", 1.9, true},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"plate marker", "plate", 0, false},
		{"zero denominator", "1/0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Diameter(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, v, 0.0001)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"lower case", "6g", "6G", true},
		{"padded", "  3G ", "3G", true},
		{"already canonical", "2F", "2F", true},
		{"empty", "", "", false},
		{"whitespace only", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Position(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestHasBacking(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"ceramic backing", "ceramic backing strip", true},
		{"steel backing", "Steel backing", true},
		{"open root", "Open root, GTAW", false},
		{"without", "welded without backing", false},
		{"not applicable", "N/A", false},
		{"none", "none", false},
		{"single sided", "Single Sided", false},
		{"explicit no backing", "NO BACKING", false},
		// Blank defaults to true: assuming backing present narrows the
		// production qualification, which is the safe reading.
		{"blank", "", true},
		{"unrecognized text", "see attached WPS", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasBacking(tt.input))
		})
	}
}
