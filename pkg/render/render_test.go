package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nuyolo/pkg/yolo"
)

func gray(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	return img
}

func TestBoxes(t *testing.T) {
	src := gray(200, 100)
	box := yolo.Box{Class: 0, X: 0.5, Y: 0.5, W: 0.5, H: 0.5}
	out := Boxes(src, []yolo.Box{box}, Options{LineWidth: 2})

	require.Equal(t, src.Bounds(), out.Bounds())
	// Left edge of the box is at x=50
	r, g, b, _ := out.At(50, 50).RGBA()
	c := Palette[0]
	assert.InDelta(t, uint32(c.R)*257, r, 2*257)
	assert.InDelta(t, uint32(c.G)*257, g, 2*257)
	assert.InDelta(t, uint32(c.B)*257, b, 2*257)

	// Center is untouched
	r, _, _, _ = out.At(100, 50).RGBA()
	assert.Equal(t, uint32(128*257), r)

	// Source image is not modified
	r, _, _, _ = src.At(50, 50).RGBA()
	assert.Equal(t, uint32(128*257), r)
}

func TestBoxesWithLabels(t *testing.T) {
	src := gray(200, 100)
	box := yolo.Box{Class: 1, X: 0.5, Y: 0.5, W: 0.5, H: 0.5, Confidence: 0.8, HasConfidence: true}
	out := Boxes(src, []yolo.Box{box}, Options{LineWidth: 1, Labels: true, Classes: []string{"a", "car"}})
	require.Equal(t, src.Bounds(), out.Bounds())

	// The label background sits just above the top-left corner
	changed := false
	for x := 51; x < 60; x++ {
		r, _, _, _ := out.At(x, 20).RGBA()
		if r != uint32(128*257) {
			changed = true
		}
	}
	assert.True(t, changed)
}

func TestClassColor(t *testing.T) {
	assert.Equal(t, Palette[0], ClassColor(len(Palette)))
	assert.Equal(t, Palette[len(Palette)-3], ClassColor(-3))
	assert.NotPanics(t, func() { ClassColor(math.MinInt) })
	assert.Equal(t, "car", className([]string{"car"}, 0))
	assert.Equal(t, "5", className([]string{"car"}, 5))
}
