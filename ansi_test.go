package flyover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConvertANSIToHTML_BasicCases tests simple ANSI to HTML conversion
func TestConvertANSIToHTML_BasicCases(t *testing.T) {
	t.Run("Plain text without ANSI", func(t *testing.T) {
		assert.Equal(t, "Hello world", convertANSIToHTML("Hello world"))
	})

	t.Run("Bold 256 colour then reset", func(t *testing.T) {
		input := "\x1b[1;38;5;39mBlue text\x1b[0m normal"
		expected := `<span style="color: #00afff; font-weight: bold;">Blue text</span> normal`
		assert.Equal(t, expected, convertANSIToHTML(input))
	})

	t.Run("Simple newline conversion", func(t *testing.T) {
		assert.Equal(t, "Line 1<br>Line 2", convertANSIToHTML("Line 1\nLine 2"))
	})

	t.Run("Text is escaped", func(t *testing.T) {
		assert.Equal(t, "a &lt;b&gt; &amp; c", convertANSIToHTML("a <b> & c"))
	})

	t.Run("Unclosed span is closed", func(t *testing.T) {
		assert.Equal(t, `<span style="color: #cd0000;">red</span>`, convertANSIToHTML("\x1b[31mred"))
	})
}

// TestConvertANSIToHTML_Colors tests the SGR colour forms
func TestConvertANSIToHTML_Colors(t *testing.T) {
	cases := []struct {
		name, input, expected string
	}{
		{"grey ramp", "\x1b[38;5;240mGray\x1b[0m", `<span style="color: #585858;">Gray</span>`},
		{"bold white", "\x1b[1;38;5;255mWhite\x1b[0m", `<span style="color: #eeeeee; font-weight: bold;">White</span>`},
		{"italic", "\x1b[3;38;5;244mNote\x1b[0m", `<span style="color: #808080; font-style: italic;">Note</span>`},
		{"background", "\x1b[1;38;5;255;48;5;240mTag\x1b[0m", `<span style="color: #eeeeee; background: #585858; font-weight: bold;">Tag</span>`},
		{"truecolor", "\x1b[38;2;232;170;66mGold\x1b[0m", `<span style="color: #e8aa42;">Gold</span>`},
		{"bright basic", "\x1b[92mOK\x1b[m", `<span style="color: #00ff00;">OK</span>`},
		{"cube", "\x1b[1;38;5;78mFound\x1b[0m", `<span style="color: #5fd787; font-weight: bold;">Found</span>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, convertANSIToHTML(tc.input))
		})
	}
}

// TestConvertANSIToHTML_StyleChanges tests that a new style replaces the open span
func TestConvertANSIToHTML_StyleChanges(t *testing.T) {
	input := "\x1b[31ma\x1b[1mb\x1b[22mc\x1b[0m"
	expected := `<span style="color: #cd0000;">a</span>` +
		`<span style="color: #cd0000; font-weight: bold;">b</span>` +
		`<span style="color: #cd0000;">c</span>`
	assert.Equal(t, expected, convertANSIToHTML(input))
}

// TestConvertANSIToHTML_CursorMovement tests cursor sequence removal
func TestConvertANSIToHTML_CursorMovement(t *testing.T) {
	t.Run("Remove cursor movements", func(t *testing.T) {
		input := "Text\x1b[AUp\x1b[BDown\x1b[CRight\x1b[DLeft"
		assert.Equal(t, "TextUpDownRightLeft", convertANSIToHTML(input))
	})

	t.Run("Remove clear sequences", func(t *testing.T) {
		input := "Before\x1b[JClear\x1b[2KLine\x1b[HHome"
		assert.Equal(t, "BeforeClearLineHome", convertANSIToHTML(input))
	})

	t.Run("Remove carriage returns", func(t *testing.T) {
		assert.Equal(t, "Textwithcarriagereturns", convertANSIToHTML("Text\rwith\rcarriage\rreturns"))
	})
}

// TestExtractANSIContent_BasicCases tests metadata filtering
func TestExtractANSIContent_BasicCases(t *testing.T) {
	t.Run("Pure ANSI content", func(t *testing.T) {
		assert.Equal(t, "Hello world", extractANSIContent("Hello world"))
	})

	t.Run("Filter out metadata comments", func(t *testing.T) {
		assert.Equal(t, "Actual content", extractANSIContent("# t=1.00\nActual content"))
	})

	t.Run("Empty content after filtering", func(t *testing.T) {
		assert.Equal(t, "", extractANSIContent("# Only metadata\n# More metadata"))
	})

	t.Run("Preserve empty lines", func(t *testing.T) {
		input := "Line 1\n\nLine 3\n\nLine 5"
		assert.Equal(t, input, extractANSIContent(input))
	})
}

// TestGantt_ConvertsCleanly renders a real gantt and checks that every escape
// sequence it emits becomes markup
func TestGantt_ConvertsCleanly(t *testing.T) {
	c := choreography(t)

	var sb strings.Builder
	gantt := Gantt(ANSIRenderer(&sb), c.Script, 6.2, 60)
	assert.Contains(t, gantt, "\x1b[")
	assert.Contains(t, gantt, "flight:sumbar")
	assert.Contains(t, gantt, "◆")

	html := convertANSIToHTML(gantt)
	assert.NotContains(t, html, "\x1b")
	assert.Contains(t, html, "<span")
	assert.Contains(t, html, "intro:plane")
	assert.Equal(t, len(c.Script.Entries)+2, strings.Count(html, "<br>"))
}

// TestConvertANSIToTerminalHTML_ErrorCases tests basic error handling
func TestConvertANSIToTerminalHTML_ErrorCases(t *testing.T) {
	t.Run("File not found", func(t *testing.T) {
		result, err := ConvertANSIToTerminalHTML("/nonexistent/file.ansi")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read ANSI file")
		assert.Empty(t, result)
	})

	t.Run("Empty content returns placeholder", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "empty.ansi")
		require.NoError(t, os.WriteFile(tmpFile, []byte("# t=0.00\n"), 0644))

		result, err := ConvertANSIToTerminalHTML(tmpFile)
		assert.NoError(t, err)
		assert.Contains(t, string(result), "No terminal output at this point")
	})
}

func TestXterm256(t *testing.T) {
	assert.Equal(t, "#000000", xterm256(16))
	assert.Equal(t, "#ffffff", xterm256(231))
	assert.Equal(t, "#080808", xterm256(232))
	assert.Equal(t, "#ff0000", xterm256(9))
	assert.Equal(t, "", xterm256(256))
}
