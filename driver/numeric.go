package driver

import (
	"math/big"
	"strconv"
)

// ParseNumeric converts the text form of a NUMERIC value into int64 or
// float64 when that conversion keeps the exact value. Anything else,
// including NaN, infinities and values with more significant digits than
// float64 holds, is returned as the original decimal text.
func ParseNumeric(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	exact, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	shortest, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok || exact.Cmp(shortest) != 0 {
		return s
	}
	return f
}
