package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/teranos/flyover/scene"
)

// Unit qualifies a numeric value.
type Unit string

const (
	UnitNone Unit = ""
	UnitVW   Unit = "vw" // percent of viewport width
	UnitVH   Unit = "vh" // percent of viewport height
)

// Value is a property value, possibly viewport-relative.
type Value struct {
	N    float64
	Unit Unit
}

// Num is a plain numeric value.
func Num(n float64) Value { return Value{N: n} }

// VW is n percent of the viewport width.
func VW(n float64) Value { return Value{N: n, Unit: UnitVW} }

// VH is n percent of the viewport height.
func VH(n float64) Value { return Value{N: n, Unit: UnitVH} }

// Resolve converts the value to scene units.
func (v Value) Resolve(vp scene.Viewport) float64 {
	switch v.Unit {
	case UnitVW:
		return v.N / 100 * vp.Width
	case UnitVH:
		return v.N / 100 * vp.Height
	default:
		return v.N
	}
}

func (v Value) String() string {
	return strconv.FormatFloat(v.N, 'f', -1, 64) + string(v.Unit)
}

// MarshalJSON writes plain values as numbers and unit values as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Unit == UnitNone {
		return json.Marshal(v.N)
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts 12, "12", "150vw" or "40vh".
func (v *Value) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Num(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timeline value: %w", err)
	}
	parsed, err := ParseValue(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue parses a number with an optional vw/vh suffix.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	unit := UnitNone
	for _, u := range []Unit{UnitVW, UnitVH} {
		if strings.HasSuffix(s, string(u)) {
			unit, s = u, strings.TrimSuffix(s, string(u))
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("timeline value %q: %w", s, err)
	}
	return Value{N: n, Unit: unit}, nil
}

// Vars maps property names to target values.
type Vars map[string]Value

func (v Vars) resolve(vp scene.Viewport) scene.Props {
	out := make(scene.Props, len(v))
	for k, val := range v {
		out[k] = val.Resolve(vp)
	}
	return out
}
