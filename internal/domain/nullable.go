package domain

import (
	"encoding/json"
	"math"
)

// NullFloat64 is a number that may be undefined, e.g. an indicator whose
// window is not yet full. The zero value is undefined.
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// Null is the undefined value.
var Null = NullFloat64{}

// Float wraps v, mapping NaN and ±Inf to undefined so they never leak out.
func Float(v float64) NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return NullFloat64{Float64: v, Valid: true}
}

// Div returns a/b, undefined when either side is undefined or b is zero.
func Div(a, b NullFloat64) NullFloat64 {
	if !a.Valid || !b.Valid || b.Float64 == 0 {
		return Null
	}
	return Float(a.Float64 / b.Float64)
}

// Sub returns a-b, undefined when either side is undefined.
func Sub(a, b NullFloat64) NullFloat64 {
	if !a.Valid || !b.Valid {
		return Null
	}
	return Float(a.Float64 - b.Float64)
}

// Less reports whether both values are defined and a < b.
func Less(a, b NullFloat64) bool {
	return a.Valid && b.Valid && a.Float64 < b.Float64
}

// Greater reports whether both values are defined and a > b.
func Greater(a, b NullFloat64) bool {
	return a.Valid && b.Valid && a.Float64 > b.Float64
}

// Ptr returns nil for an undefined value.
func (n NullFloat64) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// MarshalJSON encodes an undefined value as null.
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts a number or null.
func (n *NullFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Null
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}
