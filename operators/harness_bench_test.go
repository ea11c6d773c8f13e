package operators

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type counterModel struct{ n int }

func (m counterModel) Init() tea.Cmd { return nil }

func (m counterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		m.n++
	}
	return m, nil
}

func (m counterModel) View() string { return "count" }

// BenchmarkHarnessUpdates measures the path from Update to the synced model
func BenchmarkHarnessUpdates(b *testing.B) {
	config := DefaultHarnessConfig()
	config.CaptureViews = false
	config.BufferSize = b.N + 1
	h := NewHarnessWithConfig(b, counterModel{}, config).Start()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	}
	h.WaitFor("all updates", func(m tea.Model) bool { return m.(counterModel).n == b.N })
	b.StopTimer()
	h.Stop()
}
