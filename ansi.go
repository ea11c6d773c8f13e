package flyover

import (
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ConvertANSIToTerminalHTML reads an ANSI capture and prepares it for the HTML
// terminal panel of a report
func ConvertANSIToTerminalHTML(ansiPath string) (template.HTML, error) {
	ansiBytes, err := os.ReadFile(ansiPath)
	if err != nil {
		return "", fmt.Errorf("failed to read ANSI file: %w", err)
	}

	ansiContent := extractANSIContent(string(ansiBytes))
	if ansiContent == "" {
		return template.HTML(`<div style="color: #666;">No terminal output at this point</div>`), nil
	}
	return template.HTML(convertANSIToHTML(ansiContent)), nil
}

// sgr is the text style selected by SGR sequences.
type sgr struct {
	fg, bg       string
	bold, italic bool
}

func (s sgr) style() string {
	var parts []string
	if s.fg != "" {
		parts = append(parts, "color: "+s.fg+";")
	}
	if s.bg != "" {
		parts = append(parts, "background: "+s.bg+";")
	}
	if s.bold {
		parts = append(parts, "font-weight: bold;")
	}
	if s.italic {
		parts = append(parts, "font-style: italic;")
	}
	return strings.Join(parts, " ")
}

// basic16 is the xterm palette for codes 0-15.
var basic16 = [16]string{
	"#000000", "#cd0000", "#00cd00", "#cdcd00", "#0000ee", "#cd00cd", "#00cdcd", "#e5e5e5",
	"#7f7f7f", "#ff0000", "#00ff00", "#ffff00", "#5c5cff", "#ff00ff", "#00ffff", "#ffffff",
}

// xterm256 maps a 256-colour index to a hex colour.
func xterm256(n int) string {
	switch {
	case n < 0 || n > 255:
		return ""
	case n < 16:
		return basic16[n]
	case n < 232:
		n -= 16
		level := func(v int) int {
			if v == 0 {
				return 0
			}
			return 55 + v*40
		}
		return fmt.Sprintf("#%02x%02x%02x", level(n/36), level(n/6%6), level(n%6))
	default:
		g := 8 + (n-232)*10
		return fmt.Sprintf("#%02x%02x%02x", g, g, g)
	}
}

// apply folds one SGR parameter list into the current style.
func (s sgr) apply(params string) sgr {
	if params == "" {
		return sgr{}
	}
	codes := strings.Split(params, ";")
	num := func(i int) int {
		if i >= len(codes) {
			return -1
		}
		n, err := strconv.Atoi(codes[i])
		if err != nil {
			return -1
		}
		return n
	}
	for i := 0; i < len(codes); i++ {
		switch c := num(i); {
		case c == 0:
			s = sgr{}
		case c == 1:
			s.bold = true
		case c == 3:
			s.italic = true
		case c == 22:
			s.bold = false
		case c == 23:
			s.italic = false
		case c == 39:
			s.fg = ""
		case c == 49:
			s.bg = ""
		case c >= 30 && c <= 37:
			s.fg = basic16[c-30]
		case c >= 90 && c <= 97:
			s.fg = basic16[c-90+8]
		case c >= 40 && c <= 47:
			s.bg = basic16[c-40]
		case c == 38 || c == 48:
			var color string
			switch num(i + 1) {
			case 5:
				color = xterm256(num(i + 2))
				i += 2
			case 2:
				r, g, b := num(i+2), num(i+3), num(i+4)
				if r >= 0 && g >= 0 && b >= 0 {
					color = fmt.Sprintf("#%02x%02x%02x", r, g, b)
				}
				i += 4
			}
			if c == 38 {
				s.fg = color
			} else {
				s.bg = color
			}
		}
	}
	return s
}

// convertANSIToHTML converts ANSI escape sequences to HTML spans using a state
// machine. Only SGR sequences produce markup; cursor movement and clears are
// dropped.
func convertANSIToHTML(ansiText string) string {
	var result strings.Builder
	var cur sgr
	open := false
	i := 0

	for i < len(ansiText) {
		char := ansiText[i]

		if char == '\r' {
			i++
			continue
		}
		if char == '\n' {
			result.WriteString("<br>")
			i++
			continue
		}

		if char == '\x1b' && i+1 < len(ansiText) && ansiText[i+1] == '[' {
			i += 2
			start := i
			for i < len(ansiText) && !((ansiText[i] >= 'A' && ansiText[i] <= 'Z') || (ansiText[i] >= 'a' && ansiText[i] <= 'z')) {
				i++
			}
			if i >= len(ansiText) {
				break
			}
			params, final := ansiText[start:i], ansiText[i]
			i++
			if final != 'm' {
				continue
			}

			next := cur.apply(params)
			if next == cur {
				continue
			}
			if open {
				result.WriteString("</span>")
				open = false
			}
			if style := next.style(); style != "" {
				fmt.Fprintf(&result, `<span style="%s">`, style)
				open = true
			}
			cur = next
			continue
		}

		switch char {
		case '<':
			result.WriteString("&lt;")
		case '>':
			result.WriteString("&gt;")
		case '&':
			result.WriteString("&amp;")
		default:
			result.WriteByte(char)
		}
		i++
	}

	if open {
		result.WriteString("</span>")
	}
	return result.String()
}

// escapeForHTML escapes ANSI content for safe embedding in HTML attributes
// Only escapes dangerous HTML characters while preserving ANSI escape sequences
func escapeForHTML(content string) string {
	// html.EscapeString would turn control characters into entities
	content = strings.ReplaceAll(content, "&", "&amp;") // Must be first
	content = strings.ReplaceAll(content, "\"", "&#34;")
	content = strings.ReplaceAll(content, "'", "&#39;")
	content = strings.ReplaceAll(content, "<", "&lt;")
	content = strings.ReplaceAll(content, ">", "&gt;")
	content = strings.ReplaceAll(content, "\n", `\n`)
	content = strings.ReplaceAll(content, "\r", `\r`)
	return content
}

// extractANSIContent drops the # metadata header lines of a capture
func extractANSIContent(content string) string {
	lines := strings.Split(content, "\n")
	var ansiLines []string

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		// blank lines are part of the layout
		ansiLines = append(ansiLines, line)
	}

	result := strings.TrimSpace(strings.Join(ansiLines, "\n"))
	if result == "" {
		log.Debug().Str("head", content[:min(100, len(content))]).Msg("No ANSI content extracted")
	} else {
		log.Debug().Int("bytes", len(result)).Msg("Extracted ANSI content")
	}
	return result
}
