package exercise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{in: "7", want: 7, wantOK: true},
		{in: " 6.72 ", want: 6.72, wantOK: true},
		{in: "6,72", want: 6.72, wantOK: true},
		{in: "1 234,5", want: 1234.5, wantOK: true},
		{in: "-0.5", want: -0.5, wantOK: true},
		{in: "seven", wantOK: false},
		{in: "3/4", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNumbersMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		given    float64
		want     bool
	}{
		{name: "exact", expected: 7, given: 7, want: true},
		{name: "rounding in mid-range accepted", expected: 6.72, given: 6.70, want: true},
		{name: "different mid-range value rejected", expected: 6.72, given: 7.00, want: false},
		{name: "small value inside absolute tolerance", expected: 0.33, given: 0.335, want: true},
		{name: "small value outside absolute tolerance", expected: 0.33, given: 0.35, want: false},
		{name: "large value inside relative tolerance", expected: 1000, given: 1009, want: true},
		{name: "large value outside relative tolerance", expected: 1000, given: 1011, want: false},
		{name: "negative values", expected: -4.5, given: -4.48, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numbersMatch(tt.expected, tt.given))
		})
	}
}
