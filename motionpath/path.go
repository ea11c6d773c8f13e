// Package motionpath parses SVG path data into arc-length parameterised
// geometry and positions elements along it.
package motionpath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrBadPath is returned for path data that cannot be parsed.
var ErrBadPath = errors.New("motionpath: bad path data")

// curveSteps is how many chords approximate one bezier segment.
const curveSteps = 48

// Point is a position in the path's user space.
type Point struct {
	X, Y float64
}

func (p Point) add(q Point) Point             { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point             { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) scale(f float64) Point         { return Point{p.X * f, p.Y * f} }
func (p Point) lerp(q Point, t float64) Point { return p.add(q.sub(p).scale(t)) }
func (p Point) dist(q Point) float64          { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// Path is a flattened polyline with cumulative arc lengths.
type Path struct {
	Data   string
	points []Point
	cumLen []float64
}

// Parse flattens SVG path data. Supported commands: M L H V C S Q T Z in
// both absolute and relative form. Multiple subpaths are joined in drawing order.
func Parse(d string) (*Path, error) {
	toks, err := tokenize(d)
	if err != nil {
		return nil, err
	}
	p := &Path{Data: d}
	var cur, start Point
	var cmd rune
	// previous command and its last control point, for S and T reflection
	var prev rune
	var ctrl Point
	i := 0

	num := func() (float64, error) {
		if i >= len(toks) || toks[i].isCmd {
			return 0, fmt.Errorf("%w: command %q is missing numbers", ErrBadPath, cmd)
		}
		v := toks[i].val
		i++
		return v, nil
	}
	pair := func(rel bool) (Point, error) {
		x, err := num()
		if err != nil {
			return Point{}, err
		}
		y, err := num()
		if err != nil {
			return Point{}, err
		}
		pt := Point{x, y}
		if rel {
			pt = pt.add(cur)
		}
		return pt, nil
	}

	for i < len(toks) {
		if toks[i].isCmd {
			cmd = toks[i].cmd
			i++
		} else if cmd == 0 {
			return nil, fmt.Errorf("%w: path must start with a command", ErrBadPath)
		}
		rel := unicode.IsLower(cmd)
		kind := unicode.ToUpper(cmd)
		switch kind {
		case 'M':
			pt, err := pair(rel)
			if err != nil {
				return nil, err
			}
			cur, start = pt, pt
			p.moveTo(pt)
			// implicit lineto for extra coordinate pairs
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			pt, err := pair(rel)
			if err != nil {
				return nil, err
			}
			p.lineTo(pt)
			cur = pt
		case 'H':
			x, err := num()
			if err != nil {
				return nil, err
			}
			if rel {
				x += cur.X
			}
			cur = Point{x, cur.Y}
			p.lineTo(cur)
		case 'V':
			y, err := num()
			if err != nil {
				return nil, err
			}
			if rel {
				y += cur.Y
			}
			cur = Point{cur.X, y}
			p.lineTo(cur)
		case 'Q':
			c, err := pair(rel)
			if err != nil {
				return nil, err
			}
			end, err := pair(rel)
			if err != nil {
				return nil, err
			}
			p.quadTo(cur, c, end)
			cur, ctrl = end, c
		case 'T':
			c := cur
			if prev == 'Q' || prev == 'T' {
				c = cur.add(cur.sub(ctrl))
			}
			end, err := pair(rel)
			if err != nil {
				return nil, err
			}
			p.quadTo(cur, c, end)
			cur, ctrl = end, c
		case 'C':
			c1, err := pair(rel)
			if err != nil {
				return nil, err
			}
			c2, err := pair(rel)
			if err != nil {
				return nil, err
			}
			end, err := pair(rel)
			if err != nil {
				return nil, err
			}
			p.cubicTo(cur, c1, c2, end)
			cur, ctrl = end, c2
		case 'S':
			c1 := cur
			if prev == 'C' || prev == 'S' {
				c1 = cur.add(cur.sub(ctrl))
			}
			c2, err := pair(rel)
			if err != nil {
				return nil, err
			}
			end, err := pair(rel)
			if err != nil {
				return nil, err
			}
			p.cubicTo(cur, c1, c2, end)
			cur, ctrl = end, c2
		case 'Z':
			p.lineTo(start)
			cur = start
			cmd = 0
		default:
			return nil, fmt.Errorf("%w: unsupported command %q", ErrBadPath, cmd)
		}
		prev = kind
	}
	if len(p.points) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrBadPath)
	}
	return p, nil
}

// MustParse is Parse for literal geometry.
func MustParse(d string) *Path {
	p, err := Parse(d)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Path) moveTo(pt Point) {
	if len(p.points) == 0 {
		p.points = append(p.points, pt)
		p.cumLen = append(p.cumLen, 0)
		return
	}
	// a new subpath continues the parameterisation without adding length
	p.points = append(p.points, pt)
	p.cumLen = append(p.cumLen, p.cumLen[len(p.cumLen)-1])
}

func (p *Path) lineTo(pt Point) {
	if len(p.points) == 0 {
		p.moveTo(Point{})
	}
	last := p.points[len(p.points)-1]
	p.points = append(p.points, pt)
	p.cumLen = append(p.cumLen, p.cumLen[len(p.cumLen)-1]+last.dist(pt))
}

func (p *Path) quadTo(p0, c, p1 Point) {
	for s := 1; s <= curveSteps; s++ {
		t := float64(s) / curveSteps
		a := p0.lerp(c, t)
		b := c.lerp(p1, t)
		p.lineTo(a.lerp(b, t))
	}
}

func (p *Path) cubicTo(p0, c1, c2, p1 Point) {
	for s := 1; s <= curveSteps; s++ {
		t := float64(s) / curveSteps
		a := p0.lerp(c1, t)
		b := c1.lerp(c2, t)
		c := c2.lerp(p1, t)
		ab := a.lerp(b, t)
		bc := b.lerp(c, t)
		p.lineTo(ab.lerp(bc, t))
	}
}

// Length is the total arc length.
func (p *Path) Length() float64 {
	return p.cumLen[len(p.cumLen)-1]
}

// Start returns the first point.
func (p *Path) Start() Point { return p.points[0] }

// End returns the last point.
func (p *Path) End() Point { return p.points[len(p.points)-1] }

// Points returns the flattened polyline; callers must not modify it.
func (p *Path) Points() []Point { return p.points }

// locate returns the chord index and the fraction inside it for a distance.
func (p *Path) locate(fraction float64) (int, float64) {
	fraction = math.Max(0, math.Min(1, fraction))
	total := p.Length()
	if total == 0 || len(p.points) < 2 {
		return 0, 0
	}
	target := fraction * total
	lo, hi := 1, len(p.cumLen)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if p.cumLen[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	segLen := p.cumLen[lo] - p.cumLen[lo-1]
	if segLen == 0 {
		return lo, 1
	}
	return lo, (target - p.cumLen[lo-1]) / segLen
}

// PointAt returns the position at a fraction of the arc length.
func (p *Path) PointAt(fraction float64) Point {
	switch {
	case fraction <= 0:
		return p.Start()
	case fraction >= 1:
		return p.End()
	}
	idx, t := p.locate(fraction)
	if idx == 0 {
		return p.points[0]
	}
	return p.points[idx-1].lerp(p.points[idx], t)
}

// AngleAt returns the tangent direction in degrees at a fraction of the arc
// length, measured clockwise from the positive x axis (SVG y points down).
func (p *Path) AngleAt(fraction float64) float64 {
	idx, _ := p.locate(fraction)
	if idx == 0 {
		idx = 1
	}
	for idx < len(p.points) {
		a, b := p.points[idx-1], p.points[idx]
		if a != b {
			return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
		}
		idx++
	}
	return 0
}

type token struct {
	isCmd bool
	cmd   rune
	val   float64
}

func tokenize(d string) ([]token, error) {
	var toks []token
	rs := []rune(d)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r) || r == ',':
			i++
		case strings.ContainsRune("MmLlHhVvCcSsQqTtZz", r):
			toks = append(toks, token{isCmd: true, cmd: r})
			i++
		case r == '-' || r == '+' || r == '.' || unicode.IsDigit(r):
			j := i + 1
			seenDot := r == '.'
			seenExp := false
			for j < len(rs) {
				c := rs[j]
				if unicode.IsDigit(c) {
					j++
					continue
				}
				if c == '.' && !seenDot && !seenExp {
					seenDot = true
					j++
					continue
				}
				if (c == 'e' || c == 'E') && !seenExp {
					seenExp = true
					j++
					if j < len(rs) && (rs[j] == '-' || rs[j] == '+') {
						j++
					}
					continue
				}
				break
			}
			v, err := strconv.ParseFloat(string(rs[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: number %q", ErrBadPath, string(rs[i:j]))
			}
			toks = append(toks, token{val: v})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrBadPath, r)
		}
	}
	return toks, nil
}
