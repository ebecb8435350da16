package reconciliation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceNumberOrZero converts interactive numeric input to a number.
//
// Numbers pass through unchanged. Strings are trimmed and parsed as decimal floats.
// Anything that cannot be parsed, and NaN or infinite values, become 0. Coercion
// never fails: a bad keystroke in a quantity box zeroes the field instead of
// surfacing an error.
func CoerceNumberOrZero(v any) float64 {
	var f float64

	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
