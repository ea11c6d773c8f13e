package flyover

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ScriptSupervisor keeps film frames consistent between takes: it compares
// each captured frame with a stored baseline of the same name.
type ScriptSupervisor struct {
	baselineDir string
	currentDir  string
	tolerance   float64 // Share of pixels allowed to differ
	channelSlop uint8   // Per-channel difference that still counts as equal
	logger      zerolog.Logger
}

// NewScriptSupervisor creates a frame regression validator
func NewScriptSupervisor(baselineDir, currentDir string, logger zerolog.Logger) *ScriptSupervisor {
	return &ScriptSupervisor{
		baselineDir: baselineDir,
		currentDir:  currentDir,
		tolerance:   0.01,
		channelSlop: 2, // antialiasing jitter
		logger:      logger.With().Str("component", "supervisor").Logger(),
	}
}

// WithTolerance sets the share of pixels allowed to differ.
func (ss *ScriptSupervisor) WithTolerance(tolerance float64) *ScriptSupervisor {
	ss.tolerance = tolerance
	return ss
}

func (ss *ScriptSupervisor) framePath(dir, name string) string {
	return filepath.Join(dir, name+".png")
}

// ValidateConsistency compares the current frame called name with its baseline
func (ss *ScriptSupervisor) ValidateConsistency(name string) error {
	baseline, err := loadImage(ss.framePath(ss.baselineDir, name))
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}
	current, err := loadImage(ss.framePath(ss.currentDir, name))
	if err != nil {
		return fmt.Errorf("failed to load current: %w", err)
	}

	difference := ss.Difference(baseline, current)
	ss.logger.Debug().Str("frame", name).Float64("difference", difference).Msg("Compared frame")

	if difference > ss.tolerance {
		diffPath := ss.framePath(ss.currentDir, name+"_diff")
		if err := ss.generateDiffImage(baseline, current, diffPath); err != nil {
			// the regression is the result, the diff image is a courtesy
			ss.logger.Warn().Err(err).Str("path", diffPath).Msg("Failed to generate diff image")
		}
		return fmt.Errorf("visual regression in %s: %.2f%% difference (tolerance: %.2f%%)",
			name, difference*100, ss.tolerance*100)
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	return img, err
}

func (ss *ScriptSupervisor) same(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	near := func(x, y uint32) bool {
		x, y = x>>8, y>>8
		if x > y {
			x, y = y, x
		}
		return y-x <= uint32(ss.channelSlop)
	}
	return near(ar, br) && near(ag, bg) && near(ab, bb) && near(aa, ba)
}

// Difference is the share of pixels that differ between two frames. Frames
// of different size are entirely different.
func (ss *ScriptSupervisor) Difference(img1, img2 image.Image) float64 {
	bounds := img1.Bounds()
	if bounds != img2.Bounds() {
		return 1.0
	}
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	different := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !ss.same(img1.At(x, y), img2.At(x, y)) {
				different++
			}
		}
	}
	return float64(different) / float64(total)
}

// generateDiffImage creates a visual diff highlighting differences
func (ss *ScriptSupervisor) generateDiffImage(baseline, current image.Image, outputPath string) error {
	bounds := baseline.Bounds().Intersect(current.Bounds())
	diff := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			baseColor := baseline.At(x, y)
			if !ss.same(baseColor, current.At(x, y)) {
				diff.Set(x, y, color.RGBA{255, 0, 0, 255})
				continue
			}
			// dimmed original
			r, g, b, a := baseColor.RGBA()
			diff.Set(x, y, color.RGBA{uint8(r >> 9), uint8(g >> 9), uint8(b >> 9), uint8(a >> 8)})
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, diff)
}

// SetBaseline stores the frame at framePath as the baseline called name
func (ss *ScriptSupervisor) SetBaseline(name, framePath string) error {
	if err := os.MkdirAll(ss.baselineDir, 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		return fmt.Errorf("failed to read frame: %w", err)
	}
	if err := os.WriteFile(ss.framePath(ss.baselineDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	ss.logger.Info().Str("frame", name).Msg("Baseline updated")
	return nil
}
