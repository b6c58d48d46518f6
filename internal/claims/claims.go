// Package claims holds the raw claim set decoded from a token payload.
package claims

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Claims represents a decoded token payload as key-value pairs.
// Numbers are kept as json.Number so integer claims survive decoding exactly.
type Claims map[string]any

// Has returns true if the key exists in the claims, even if its value is null
func (c Claims) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Lookup returns the value for key. A JSON null counts as absent.
func (c Claims) Lookup(key string) (any, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the claim rendered as text. Strings are returned as-is,
// numbers and booleans in their JSON form, and objects/arrays as compact JSON.
func (c Claims) String(key string) (string, bool) {
	v, ok := c.Lookup(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		s, err := c.JSON(key)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return s, true
	}
}

// Int64 returns a numeric claim as whole seconds. Fractions are truncated and
// numeric strings are accepted. Anything else reports false.
func (c Claims) Int64(key string) (int64, bool) {
	v, ok := c.Lookup(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		return numberToInt64(string(t))
	case string:
		return numberToInt64(t)
	case float64:
		return floatToInt64(t)
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}

// Bool returns a boolean claim. The strings "true" and "false" are accepted.
func (c Claims) Bool(key string) (bool, bool) {
	v, ok := c.Lookup(key)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// Flag reads a present claim as a boolean whatever its type. Booleans and
// "true"/"false" strings keep their value; other values use truthiness:
// zero numbers and empty strings are false, everything else is true.
func (c Claims) Flag(key string) (bool, bool) {
	if b, ok := c.Bool(key); ok {
		return b, true
	}
	v, ok := c.Lookup(key)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case string:
		return t != "", true
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0, true
	case float64:
		return t != 0, true
	case int64:
		return t != 0, true
	case int:
		return t != 0, true
	default:
		return true, true
	}
}

// JSON re-encodes the claim value as a JSON document.
func (c Claims) JSON(key string) (string, error) {
	v, ok := c.Lookup(key)
	if !ok {
		return "", fmt.Errorf("claim %q not present", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode claim %q: %w", key, err)
	}
	return string(b), nil
}

func numberToInt64(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

// floatToInt64 truncates f, saturating values outside the int64 range.
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is inclusive.
func floatToInt64(f float64) (int64, bool) {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0, false
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}
