package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"12", int64(12)},
		{"-7", int64(-7)},
		{"9223372036854775807", int64(9223372036854775807)},
		{"12.50", 12.5},
		{"0.1", 0.1},
		{"1200", int64(1200)},
		{"12.00", 12.0},
		{"12345678901234567.89", "12345678901234567.89"},
		{"99999999999999999999", "99999999999999999999"},
		{"9223372036854775808", "9223372036854775808"},
		{"0.12345678901234567890123", "0.12345678901234567890123"},
		{"NaN", "NaN"},
		{"Infinity", "Infinity"},
		{"-Infinity", "-Infinity"},
		{"not a number", "not a number"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumeric(tt.in))
		})
	}
}
