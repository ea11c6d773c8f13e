package flyover

import (
	"io"
	"testing"
)

func BenchmarkRender(b *testing.B) {
	c := choreography(b)
	rs := NewRenderingStage(DefaultConfig())
	frame := c.Script.Sample(8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := rs.Render(c.Scene, frame); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDirectorAdvance(b *testing.B) {
	config := DefaultDirectorConfig()
	config.CaptureSnapshots = false
	for i := 0; i < b.N; i++ {
		st := mount(b)
		NewDirectorWithConfig(b, st, config).Start().AdvanceTo(st.Duration() + 3).Stop()
	}
}

func BenchmarkGantt(b *testing.B) {
	c := choreography(b)
	r := ANSIRenderer(io.Discard)
	for i := 0; i < b.N; i++ {
		Gantt(r, c.Script, 7.5, 72)
	}
}
