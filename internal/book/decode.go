package book

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Decode converts a full record into a Book. Missing fields keep their zero
// value.
func Decode(doc Document) (Book, error) {
	var b Book
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &b,
		TagName: "mapstructure",
	})
	if err != nil {
		return Book{}, err
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return Book{}, fmt.Errorf("decode book %v: %w", doc[FieldID], err)
	}
	return b, nil
}

// Decade returns the decade a year falls in, e.g. 1949 -> 1940. Years before
// zero truncate toward zero, matching the store's $mod.
func Decade(year int64) int64 {
	return year - year%10
}

// DecadeLabel formats a decade for display, e.g. 1940 -> "1940s".
func DecadeLabel(decade int64) string {
	return strconv.FormatInt(decade, 10) + "s"
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case float32:
		return toInt64(float64(x))
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
