package yolo

import (
	"bytes"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCorners(t *testing.T) {
	b := FromCorners(3, 400, 225, 800, 675, 1600, 900)
	assert.Equal(t, 3, b.Class)
	assert.InDelta(t, 0.375, b.X, 1e-12)
	assert.InDelta(t, 0.5, b.Y, 1e-12)
	assert.InDelta(t, 0.25, b.W, 1e-12)
	assert.InDelta(t, 0.5, b.H, 1e-12)
	assert.True(t, b.Valid())
}

func TestClamp(t *testing.T) {
	// Box hanging off the right and bottom edges
	b := FromCorners(0, 1500, 800, 1700, 1000, 1600, 900)
	assert.False(t, b.Valid())

	c := b.Clamp()
	require.True(t, c.Valid())
	assert.InDelta(t, 100.0/1600, c.W, 1e-12)
	assert.InDelta(t, 100.0/900, c.H, 1e-12)
	assert.InDelta(t, 1550.0/1600, c.X, 1e-12)
	assert.InDelta(t, 850.0/900, c.Y, 1e-12)

	// Entirely outside collapses to zero area
	d := FromCorners(0, 1700, 100, 1800, 200, 1600, 900).Clamp()
	assert.False(t, d.Valid())
}

func TestValid(t *testing.T) {
	cases := []struct {
		name string
		box  Box
		ok   bool
	}{
		{"ok", Box{Class: 1, X: 0.5, Y: 0.5, W: 0.1, H: 0.1}, true},
		{"zero width", Box{Class: 1, X: 0.5, Y: 0.5, W: 0, H: 0.1}, false},
		{"negative class", Box{Class: -1, X: 0.5, Y: 0.5, W: 0.1, H: 0.1}, false},
		{"out of range", Box{Class: 1, X: 1.5, Y: 0.5, W: 0.1, H: 0.1}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.ok, c.box.Valid())
		})
	}
}

func TestStringAndParse(t *testing.T) {
	b := Box{Class: 7, X: 0.5, Y: 0.25, W: 0.125, H: 1}
	assert.Equal(t, "7 0.5 0.25 0.125 1", b.String())

	p, err := ParseLine("7 0.5 0.25 0.125 1.0")
	require.NoError(t, err)
	assert.Equal(t, b, p)

	p, err = ParseLine("2.0 0.1 0.2 0.3 0.4 0.91")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Class)
	assert.True(t, p.HasConfidence)
	assert.InDelta(t, 0.91, p.Confidence, 1e-12)
	assert.Equal(t, "2 0.1 0.2 0.3 0.4 0.91", p.String())
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"1 0.1 0.2 0.3",
		"x 0.1 0.2 0.3 0.4",
		"1.5 0.1 0.2 0.3 0.4",
		"1 0.1 abc 0.3 0.4",
		"-1 0.1 0.2 0.3 0.4",
		"Inf 0.1 0.2 0.3 0.4",
		"NaN 0.1 0.2 0.3 0.4",
		"1e300 0.1 0.2 0.3 0.4",
		"9223372036854775808 0.1 0.2 0.3 0.4",
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestParseLineClassBounds(t *testing.T) {
	b, err := ParseLine("2147483647 0.1 0.2 0.3 0.4")
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, b.Class)

	b, err = ParseLine("3.0 0.1 0.2 0.3 0.4")
	require.NoError(t, err)
	assert.Equal(t, 3, b.Class)
}

func TestReadWriteLabels(t *testing.T) {
	in := "0 0.5 0.5 0.2 0.2\n\n3 0.1 0.1 0.05 0.05\n"
	boxes, err := ReadLabels(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteLabels(&buf, boxes))
	assert.Equal(t, "0 0.5 0.5 0.2 0.2\n3 0.1 0.1 0.05 0.05\n", buf.String())

	_, err = ReadLabels(strings.NewReader("0 0.5 0.5 0.2 0.2\nbad line\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadLabelsEmpty(t *testing.T) {
	boxes, err := ReadLabels(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestRect(t *testing.T) {
	b := Box{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}
	assert.Equal(t, image.Rect(25, 50, 75, 150), b.Rect(100, 200))
}
