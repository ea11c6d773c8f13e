package scene

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrBadSelector is returned for selectors outside the supported grammar:
// comma-separated groups of compound selectors (tag, #id, .class) joined by
// whitespace (descendant combinator).
var ErrBadSelector = errors.New("scene: bad selector")

type compound struct {
	tag     string
	id      string
	classes []string
}

func (c compound) matches(e *Element) bool {
	if c.tag != "" && c.tag != "*" && !strings.EqualFold(c.tag, e.Tag) {
		return false
	}
	if c.id != "" && c.id != e.ID {
		return false
	}
	for _, class := range c.classes {
		if !e.HasClass(class) {
			return false
		}
	}
	return true
}

// chain is one comma group, outermost compound first.
type chain []compound

func (ch chain) matches(e *Element) bool {
	last := len(ch) - 1
	if !ch[last].matches(e) {
		return false
	}
	anc := e.parent
	for i := last - 1; i >= 0; i-- {
		for anc != nil && !ch[i].matches(anc) {
			anc = anc.parent
		}
		if anc == nil {
			return false
		}
		anc = anc.parent
	}
	return true
}

func parseSelector(selector string) ([]chain, error) {
	var groups []chain
	for _, group := range strings.Split(selector, ",") {
		fields := strings.Fields(group)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: empty group in %q", ErrBadSelector, selector)
		}
		var ch chain
		for _, f := range fields {
			c, err := parseCompound(f)
			if err != nil {
				return nil, fmt.Errorf("%w (in %q)", err, selector)
			}
			ch = append(ch, c)
		}
		groups = append(groups, ch)
	}
	return groups, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		j := i
		for j < len(s) && (unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j])) || s[j] == '-' || s[j] == '_') {
			j++
		}
		name := s[i:j]
		i = j
		return name
	}
	if i < len(s) && s[i] == '*' {
		c.tag = "*"
		i++
	} else if i < len(s) && s[i] != '.' && s[i] != '#' {
		c.tag = readName()
		if c.tag == "" {
			return c, fmt.Errorf("%w: unexpected %q", ErrBadSelector, s[i])
		}
	}
	for i < len(s) {
		marker := s[i]
		i++
		name := readName()
		if name == "" {
			return c, fmt.Errorf("%w: %q has an empty name after %q", ErrBadSelector, s, marker)
		}
		switch marker {
		case '#':
			c.id = name
		case '.':
			c.classes = append(c.classes, name)
		default:
			return c, fmt.Errorf("%w: unexpected %q", ErrBadSelector, marker)
		}
	}
	return c, nil
}

// Match returns the elements a selector matches, in document order and
// without duplicates. Matching nothing is not an error.
func (s *Scene) Match(selector string) ([]*Element, error) {
	groups, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	var out []*Element
	for _, e := range s.elements {
		for _, g := range groups {
			if g.matches(e) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}
