package flyover

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/flyover/scene"
	"github.com/teranos/flyover/timeline"
)

func countColor(img *image.RGBA, c color.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func halves(img *image.RGBA) (left, right image.Rectangle) {
	b := img.Bounds()
	mid := b.Dx() / 2
	return image.Rect(0, 0, mid, b.Dy()), image.Rect(mid, 0, b.Dx(), b.Dy())
}

// TestRenderingStage_MountFrameIsCovered checks that the overlay hides everything at mount
func TestRenderingStage_MountFrameIsCovered(t *testing.T) {
	c := choreography(t)
	rs := NewRenderingStage(DefaultConfig())

	img, err := rs.Render(c.Scene, c.Script.Sample(0))
	require.NoError(t, err)

	config := rs.Config()
	left, right := halves(img)
	assert.Zero(t, countColor(img, config.Accent, right), "routes are not drawn yet")
	assert.Zero(t, countColor(img, config.Foreground, left), "copy is hidden")

	px := img.RGBAAt(config.Width/4, config.Height/4)
	assert.Less(t, px.R, config.Background.R, "overlay darkens the frame")
}

// TestRenderingStage_EndFrame checks the settled frame: copy left, map right
func TestRenderingStage_EndFrame(t *testing.T) {
	c := choreography(t)
	rs := NewRenderingStage(DefaultConfig())

	img, err := rs.Render(c.Scene, c.Script.Sample(c.Script.Duration))
	require.NoError(t, err)

	config := rs.Config()
	left, right := halves(img)
	assert.Zero(t, countColor(img, config.Accent, left))
	assert.Greater(t, countColor(img, config.Accent, right), 100, "three routes and the origin pin")
	assert.Greater(t, countColor(img, config.Foreground, left), 50, "title and details")
	assert.Equal(t, config.Background, img.RGBAAt(config.Width/2+2, 2), "corner of the map stays clear")
}

// TestRenderingStage_RoutesGrow checks that route strokes follow the dash offset
func TestRenderingStage_RoutesGrow(t *testing.T) {
	c := choreography(t)
	rs := NewRenderingStage(DefaultConfig())
	_, right := halves(rs.Image())

	var counts []int
	for _, at := range []float64{6.2, 7.0, 8.0, 9.7} {
		img, err := rs.Render(c.Scene, c.Script.Sample(at))
		require.NoError(t, err)
		counts = append(counts, countColor(img, rs.Config().Accent, right))
	}
	for i := 1; i < len(counts); i++ {
		assert.Greater(t, counts[i], counts[i-1], "accent at sample %d", i)
	}
}

// TestRenderingStage_Deterministic checks that the same frame renders the same pixels
func TestRenderingStage_Deterministic(t *testing.T) {
	c := choreography(t)
	a, err := NewRenderingStage(DefaultConfig()).Render(c.Scene, c.Script.Sample(7.5))
	require.NoError(t, err)
	b, err := NewRenderingStage(DefaultConfig()).Render(c.Scene, c.Script.Sample(7.5))
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

// TestRenderingStage_CaptureFrame checks the PNG written to disk
func TestRenderingStage_CaptureFrame(t *testing.T) {
	c := choreography(t)
	config := DefaultConfig()
	config.OutputDir = filepath.Join(t.TempDir(), "frames")
	config.Width, config.Height = 320, 180
	rs := NewRenderingStage(config)

	_, err := rs.Render(c.Scene, c.Script.Sample(5))
	require.NoError(t, err)
	path, err := rs.CaptureFrame("mid.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(config.OutputDir, "mid.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 180), img.Bounds())
}

// TestRenderingStage_EmptyScene renders a scene without any landing markers
func TestRenderingStage_EmptyScene(t *testing.T) {
	sc := scene.New(scene.El("div"), scene.DefaultViewport)
	rs := NewRenderingStage(Config{})
	img, err := rs.Render(sc, timeline.Frame{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Width, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0), "zero config background")
}
