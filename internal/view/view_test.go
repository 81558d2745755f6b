package view

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Index      int
	Class      int
	ClassName  string
	X, Y, W, H float64
	Confidence float64
}

func TestRender(t *testing.T) {
	e := New()
	require.NoError(t, e.Load())

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "inference", map[string]interface{}{
		"Title":      "Results abc",
		"Tag":        "abc",
		"Detections": []row{{Index: 0, Class: 2, ClassName: "car", X: 0.5, Y: 0.5, W: 0.25, H: 0.125}},
	}, Layout))
	out := buf.String()
	assert.Contains(t, out, `src="/image?tag=abc"`)
	assert.Contains(t, out, "<td>car</td>")
	assert.Contains(t, out, "0.1250")
	assert.Contains(t, out, "<td>-</td>")
	assert.Contains(t, out, "<title>Results abc</title>")
	assert.Contains(t, out, `href="/templates/main.css"`)

	buf.Reset()
	require.NoError(t, e.Render(&buf, "error", map[string]interface{}{
		"Status":  400,
		"Message": "<script>",
	}, Layout))
	assert.Contains(t, buf.String(), "&lt;script&gt;")
	assert.Contains(t, buf.String(), "<title>YOLO Detector</title>")

	assert.Error(t, e.Render(io.Discard, "missing", nil, Layout))
}

func TestRenderWithoutLayout(t *testing.T) {
	e := New()
	require.NoError(t, e.Load())

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "home", map[string]interface{}{"ModelName": "best.pt"}))
	assert.Contains(t, buf.String(), `value="best.pt"`)
	assert.NotContains(t, buf.String(), "<html")
}

func TestStatic(t *testing.T) {
	f, err := Static().Open("main.css")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "body {")
}
