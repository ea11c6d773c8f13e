package flyover

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHTMLEscapingCorrectness validates that HTML escaping doesn't double-escape
func TestHTMLEscapingCorrectness(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Basic HTML characters",
			input:    `<script>alert("xss")</script>`,
			expected: `&lt;script&gt;alert(&#34;xss&#34;)&lt;/script&gt;`,
		},
		{
			name:     "Ampersand first",
			input:    `<tag attr="value">`,
			expected: `&lt;tag attr=&#34;value&#34;&gt;`,
		},
		{
			name:     "ANSI escape sequences survive",
			input:    "\x1b[38;5;214m<aceh>&sumut\x1b[0m",
			expected: "\x1b[38;5;214m&lt;aceh&gt;&amp;sumut\x1b[0m",
		},
		{
			name:     "Newlines converted to literals",
			input:    "line1\nline2\r\nline3",
			expected: `line1\nline2\r\nline3`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := escapeForHTML(tc.input)
			assert.Equal(t, tc.expected, result)

			assert.NotContains(t, result, "&amp;lt;", "Double-escaping detected: &amp;lt;")
			assert.NotContains(t, result, "&amp;gt;", "Double-escaping detected: &amp;gt;")
		})
	}
}

// TestHTMLEscaping_MatchesStandardLibrary checks agreement with html.EscapeString
// on text without control characters
func TestHTMLEscaping_MatchesStandardLibrary(t *testing.T) {
	for _, input := range []string{`<script>`, `a & b`, `"quoted" 'single'`, "Let's Start the Journey ➝"} {
		ours := escapeForHTML(input)
		ours = strings.ReplaceAll(strings.ReplaceAll(ours, `\n`, "\n"), `\r`, "\r")
		assert.Equal(t, html.EscapeString(input), ours, input)
	}
}
