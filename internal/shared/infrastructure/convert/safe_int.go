// Package convert provides overflow-checked integer conversions.
package convert

import (
	"fmt"
	"math"
)

// IntToInt32 converts an int to int32, failing on overflow.
func IntToInt32(v int) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("value %d overflows int32", v)
	}
	return int32(v), nil
}

// IntToInt32Clamped converts an int to int32, clamping out-of-range values
// to the int32 bounds. Use where truncation is acceptable, such as
// connection limits and counters.
func IntToInt32Clamped(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
