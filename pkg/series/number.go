package series

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a price cell as delivered by a collaborator. JSON null, empty
// strings and anything that does not parse decode to NaN instead of failing
// the whole payload.
type Number float64

// NaN is the missing-value marker.
func NaN() Number { return Number(math.NaN()) }

// Float returns the cell as float64.
func (n Number) Float() float64 { return float64(n) }

// Valid reports whether the cell holds a finite number.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = NaN()
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = NaN()
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = NaN()
		return nil
	}
	*n = Number(f)
	return nil
}

// MarshalJSON implements json.Marshaler. Missing cells encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}

// ParseNumber converts text to a Number, yielding NaN on failure.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NaN()
	}
	return Number(f)
}

// Numbers converts plain floats.
func Numbers(values ...float64) []Number {
	out := make([]Number, len(values))
	for i, v := range values {
		out[i] = Number(v)
	}
	return out
}
