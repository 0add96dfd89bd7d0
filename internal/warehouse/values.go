package warehouse

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
)

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		normalized[i] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case nil, string, int64, float64, bool, time.Time:
		return typed
	case []byte:
		return string(typed)
	case int:
		return int64(typed)
	case int8:
		return int64(typed)
	case int16:
		return int64(typed)
	case int32:
		return int64(typed)
	case uint8:
		return int64(typed)
	case uint16:
		return int64(typed)
	case uint32:
		return int64(typed)
	case uint:
		return normalizeUnsigned(uint64(typed))
	case uint64:
		return normalizeUnsigned(typed)
	case float32:
		return float64(typed)
	case duckdb.Decimal:
		return formatDecimal(typed.Value, typed.Scale)
	case fmt.Stringer:
		return typed.String()
	case interface{ Float64() float64 }:
		return typed.Float64()
	default:
		return fmt.Sprint(typed)
	}
}

func normalizeUnsigned(value uint64) any {
	if value > math.MaxInt64 {
		return strconv.FormatUint(value, 10)
	}
	return int64(value)
}

// formatDecimal renders an unscaled integer with scale fractional digits,
// keeping every digit the warehouse returned.
func formatDecimal(unscaled *big.Int, scale uint8) string {
	if unscaled == nil {
		return "0"
	}
	digits := new(big.Int).Abs(unscaled).String()
	sign := ""
	if unscaled.Sign() < 0 {
		sign = "-"
	}
	if scale == 0 {
		return sign + digits
	}
	places := int(scale)
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	return sign + digits[:len(digits)-places] + "." + digits[len(digits)-places:]
}
