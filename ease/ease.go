// Package ease turns GSAP-style ease names ("power1.inOut", "back.out(1.7)")
// into normalized curves backed by gween's easing functions.
package ease

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	gease "github.com/tanema/gween/ease"
)

// ErrUnknownEase is returned for names that do not map to a curve.
var ErrUnknownEase = errors.New("ease: unknown ease")

// defaultOvershoot is the "back" overshoot used by gween and GSAP alike.
const defaultOvershoot = 1.70158

// Curve maps linear progress p in [0,1] to eased progress. Curve(0) == 0 and
// Curve(1) == 1 for every curve produced here; values in between may leave
// [0,1] (back, elastic).
type Curve func(p float64) float64

// Named is a parsed ease that keeps its source name for encoding.
type Named struct {
	Name  string
	Curve Curve
}

// Apply evaluates the curve, treating a nil curve as linear.
func (n Named) Apply(p float64) float64 {
	if n.Curve == nil {
		return p
	}
	return n.Curve(p)
}

// String returns the original ease name.
func (n Named) String() string {
	if n.Name == "" {
		return "none"
	}
	return n.Name
}

// MarshalText encodes the ease as its name.
func (n Named) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText parses an ease name.
func (n *Named) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// fromTween adapts a gween TweenFunc (t, begin, change, duration) to a Curve.
func fromTween(fn gease.TweenFunc) Curve {
	return func(p float64) float64 {
		switch {
		case p <= 0:
			return 0
		case p >= 1:
			return 1
		}
		return float64(fn(float32(p), 0, 1, 1))
	}
}

type family struct {
	in, out, inOut gease.TweenFunc
}

var families = map[string]family{
	"power0": {gease.Linear, gease.Linear, gease.Linear},
	"power1": {gease.InQuad, gease.OutQuad, gease.InOutQuad},
	"quad":   {gease.InQuad, gease.OutQuad, gease.InOutQuad},
	"power2": {gease.InCubic, gease.OutCubic, gease.InOutCubic},
	"cubic":  {gease.InCubic, gease.OutCubic, gease.InOutCubic},
	"power3": {gease.InQuart, gease.OutQuart, gease.InOutQuart},
	"quart":  {gease.InQuart, gease.OutQuart, gease.InOutQuart},
	"power4": {gease.InQuint, gease.OutQuint, gease.InOutQuint},
	"quint":  {gease.InQuint, gease.OutQuint, gease.InOutQuint},
	"strong": {gease.InQuint, gease.OutQuint, gease.InOutQuint},
	"sine":   {gease.InSine, gease.OutSine, gease.InOutSine},
	"expo":   {gease.InExpo, gease.OutExpo, gease.InOutExpo},
	"circ":   {gease.InCirc, gease.OutCirc, gease.InOutCirc},
	"bounce": {gease.InBounce, gease.OutBounce, gease.InOutBounce},
	"back":   {gease.InBack, gease.OutBack, gease.InOutBack},
}

// Parse resolves an ease name. The empty string, "none" and "linear" are
// linear. A bare family name ("power2") means its ".out" variant, matching
// the animation library the names come from.
func Parse(name string) (Named, error) {
	raw := strings.TrimSpace(name)
	switch strings.ToLower(raw) {
	case "", "none", "linear", "power0.in", "power0.out", "power0.inout":
		return Named{Name: orNone(raw), Curve: linear}, nil
	}

	base, arg, hasArg, err := splitArg(raw)
	if err != nil {
		return Named{}, err
	}

	familyName, variant := base, "out"
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		familyName, variant = base[:dot], base[dot+1:]
	}
	familyName = strings.ToLower(familyName)
	variant = strings.ToLower(variant)

	if familyName == "back" && hasArg {
		return Named{Name: raw, Curve: back(variant, arg)}, nil
	}
	if familyName == "elastic" {
		return Named{Name: raw, Curve: elastic(variant)}, nil
	}

	f, ok := families[familyName]
	if !ok {
		return Named{}, fmt.Errorf("%w: %q", ErrUnknownEase, name)
	}
	var fn gease.TweenFunc
	switch variant {
	case "in":
		fn = f.in
	case "out":
		fn = f.out
	case "inout":
		fn = f.inOut
	default:
		return Named{}, fmt.Errorf("%w: %q (variant %q)", ErrUnknownEase, name, variant)
	}
	return Named{Name: raw, Curve: fromTween(fn)}, nil
}

// MustParse is Parse for package-level constants.
func MustParse(name string) Named {
	n, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return n
}

func orNone(raw string) string {
	if raw == "" {
		return "none"
	}
	return raw
}

func linear(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

func splitArg(raw string) (base string, arg float64, hasArg bool, err error) {
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return raw, 0, false, nil
	}
	if !strings.HasSuffix(raw, ")") {
		return "", 0, false, fmt.Errorf("%w: %q (unterminated argument)", ErrUnknownEase, raw)
	}
	inner := strings.TrimSpace(raw[open+1 : len(raw)-1])
	if inner == "" {
		return raw[:open], 0, false, nil
	}
	arg, err = strconv.ParseFloat(inner, 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %q (argument %q)", ErrUnknownEase, raw, inner)
	}
	return raw[:open], arg, true, nil
}

// back overshoots by s. back.out(1.7) reaches ~1.1 before settling at 1.
func back(variant string, s float64) Curve {
	if s == 0 {
		s = defaultOvershoot
	}
	in := func(p float64) float64 { return p * p * ((s+1)*p - s) }
	out := func(p float64) float64 { q := p - 1; return q*q*((s+1)*q+s) + 1 }
	var c Curve
	switch variant {
	case "in":
		c = in
	case "inout":
		c = func(p float64) float64 {
			if p < 0.5 {
				return in(p*2) / 2
			}
			return 0.5 + out(p*2-1)/2
		}
	default:
		c = out
	}
	return clampEnds(c)
}

func elastic(variant string) Curve {
	var fn gease.TweenFunc
	switch variant {
	case "in":
		fn = gease.InElastic
	case "inout":
		fn = gease.InOutElastic
	default:
		fn = gease.OutElastic
	}
	return fromTween(fn)
}

func clampEnds(c Curve) Curve {
	return func(p float64) float64 {
		switch {
		case p <= 0:
			return 0
		case p >= 1:
			return 1
		}
		return c(p)
	}
}
