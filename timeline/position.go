package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// At formats an absolute position in seconds.
func At(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

type anchorKind int

const (
	anchorEnd anchorKind = iota
	anchorAbsolute
	anchorPrevStart
	anchorPrevEnd
	anchorLabel
)

// position is a parsed placement. The resolved time is anchor + offset.
type position struct {
	kind   anchorKind
	label  string
	offset float64
}

// parsePosition understands:
//
//	""          timeline end
//	"2.5"       absolute seconds
//	"+=1" "-=1" relative to the timeline end
//	"<" ">"     previous segment start / end, optionally "<0.5", "<-=0.5", ">+=1"
//	"name"      a label, optionally "name+=1" / "name-=1"
func parsePosition(raw string) (position, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return position{kind: anchorEnd}, nil
	}
	if strings.HasPrefix(s, "+=") || strings.HasPrefix(s, "-=") {
		off, err := relative(s)
		if err != nil {
			return position{}, fmt.Errorf("position %q: %w", raw, err)
		}
		return position{kind: anchorEnd, offset: off}, nil
	}
	if s[0] == '<' || s[0] == '>' {
		kind := anchorPrevStart
		if s[0] == '>' {
			kind = anchorPrevEnd
		}
		off, err := suffixOffset(s[1:])
		if err != nil {
			return position{}, fmt.Errorf("position %q: %w", raw, err)
		}
		return position{kind: kind, offset: off}, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return position{kind: anchorAbsolute, offset: v}, nil
	}
	name, rest := s, ""
	if i := strings.Index(s, "+="); i > 0 {
		name, rest = s[:i], s[i:]
	} else if i := strings.Index(s, "-="); i > 0 {
		name, rest = s[:i], s[i:]
	}
	if !validLabel(name) {
		return position{}, fmt.Errorf("position %q: not a label or offset", raw)
	}
	off, err := suffixOffset(rest)
	if err != nil {
		return position{}, fmt.Errorf("position %q: %w", raw, err)
	}
	return position{kind: anchorLabel, label: name, offset: off}, nil
}

func relative(s string) (float64, error) {
	v, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return 0, fmt.Errorf("bad offset %q", s)
	}
	if s[0] == '-' {
		v = -v
	}
	return v, nil
}

func suffixOffset(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "+=") || strings.HasPrefix(s, "-=") {
		return relative(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad offset %q", s)
	}
	return v, nil
}

func validLabel(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r == '-' && i > 0:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
