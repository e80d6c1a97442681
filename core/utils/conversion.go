package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToInt converts various types to int using explicit type switching.
// It handles standard integer types, floats, strings, and byte slices.
func ToInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return int(ToFloat(v))
		}
		return i
	case []byte:
		return ToInt(string(v))
	case nil:
		return 0
	default:
		return ToInt(fmt.Sprintf("%v", v))
	}
}

// ToFloat converts numbers and numeric strings to float64.
// Confidence scores arrive as 87, 87.5 or "87%" depending on the producer.
func ToFloat(val any) float64 {
	f, _ := ParseFloat(val)
	return f
}

// ParseFloat is ToFloat that also reports whether the value was numeric.
func ParseFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(v), "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return ParseFloat(string(v))
	default:
		return 0, false
	}
}

// ToString converts various types to string.
// Whole floats render without a fraction so numeric ids round-trip as "42".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, uint, uint64, uint32:
		return ToInt(v) == 1
	case string:
		return v == "1" || strings.ToLower(v) == "true"
	case []byte:
		s := string(v)
		return s == "1" || strings.ToLower(s) == "true"
	default:
		return false
	}
}

// ToStringSlice converts a decoded JSON array into strings, dropping empties.
// A single scalar becomes a one-element slice.
func ToStringSlice(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := ToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := ToString(v); s != "" {
			return []string{s}
		}
		return nil
	}
}
