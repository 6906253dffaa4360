package models

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// CoerceQuantity turns raw client input into an integer quantity. Anything that is not
// a whole number (booleans, garbage strings, fractions in strings, absurd magnitudes)
// becomes 0 so the caller rejects it as non-positive.
func CoerceQuantity(raw interface{}) int {
	switch v := raw.(type) {
	case nil, bool:
		return 0
	case float64:
		if math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0
		}
	case string:
		v = strings.TrimSpace(v)
		if trimmed := strings.TrimLeft(v, "0"); trimmed != v {
			// cast parses with base 0; leading zeros would read as octal
			if trimmed == "" {
				trimmed = "0"
			}
			v = trimmed
		}
		raw = v
	}

	n, err := cast.ToInt64E(raw)
	if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
		return 0
	}
	return int(n)
}
