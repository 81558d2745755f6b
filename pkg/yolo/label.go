// Package yolo reads and writes YOLO darknet-style label files.
//
// Each line holds one object: "class x_center y_center width height", with
// every coordinate normalized to the image size. Detector output may append a
// sixth confidence column.
package yolo

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Box is a single normalized bounding box
type Box struct {
	Class         int     `json:"class"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	W             float64 `json:"w"`
	H             float64 `json:"h"`
	Confidence    float64 `json:"confidence,omitempty"`
	HasConfidence bool    `json:"hasConfidence,omitempty"`
}

// FromCorners converts a pixel (xmin, ymin, xmax, ymax) box into a normalized center box.
func FromCorners(class int, xmin, ymin, xmax, ymax float64, imgW, imgH int) Box {
	w := float64(imgW)
	h := float64(imgH)
	return Box{
		Class: class,
		X:     (xmax + xmin) / (w * 2),
		Y:     (ymax + ymin) / (h * 2),
		W:     (xmax - xmin) / w,
		H:     (ymax - ymin) / h,
	}
}

// Clamp returns the box intersected with the unit square.
func (b Box) Clamp() Box {
	x1 := clamp01(b.X - b.W/2)
	y1 := clamp01(b.Y - b.H/2)
	x2 := clamp01(b.X + b.W/2)
	y2 := clamp01(b.Y + b.H/2)
	b.X = (x1 + x2) / 2
	b.Y = (y1 + y2) / 2
	b.W = x2 - x1
	b.H = y2 - y1
	return b
}

// Valid is true when the box has a positive area, a non-negative class, and lies inside the image.
func (b Box) Valid() bool {
	if b.Class < 0 || b.W <= 0 || b.H <= 0 {
		return false
	}
	for _, v := range []float64{b.X - b.W/2, b.Y - b.H/2, b.X + b.W/2, b.Y + b.H/2} {
		if math.IsNaN(v) || v < -edgeEpsilon || v > 1+edgeEpsilon {
			return false
		}
	}
	return true
}

// Tolerates float rounding on boxes that touch the image border
const edgeEpsilon = 1e-9

// Rect returns the pixel rectangle of the box for an image of the given size.
func (b Box) Rect(imgW, imgH int) image.Rectangle {
	w := float64(imgW)
	h := float64(imgH)
	return image.Rect(
		int(math.Round((b.X-b.W/2)*w)),
		int(math.Round((b.Y-b.H/2)*h)),
		int(math.Round((b.X+b.W/2)*w)),
		int(math.Round((b.Y+b.H/2)*h)),
	)
}

func (b Box) String() string {
	s := fmt.Sprintf("%d %s %s %s %s", b.Class, formatFloat(b.X), formatFloat(b.Y), formatFloat(b.W), formatFloat(b.H))
	if b.HasConfidence {
		s += " " + formatFloat(b.Confidence)
	}
	return s
}

// ParseLine parses a single label line (5 or 6 whitespace-separated fields).
func ParseLine(line string) (Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 && len(fields) != 6 {
		return Box{}, fmt.Errorf("expected 5 or 6 fields, got %d", len(fields))
	}
	// Some exporters write the class as a float ("3.0")
	cls, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || cls != math.Trunc(cls) || cls < 0 || cls > math.MaxInt32 {
		return Box{}, fmt.Errorf("invalid class %q", fields[0])
	}
	vals := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Box{}, fmt.Errorf("invalid number %q", f)
		}
		vals[i] = v
	}
	b := Box{
		Class: int(cls),
		X:     vals[0],
		Y:     vals[1],
		W:     vals[2],
		H:     vals[3],
	}
	if len(vals) == 5 {
		b.Confidence = vals[4]
		b.HasConfidence = true
	}
	return b, nil
}

// ReadLabels reads every box from r. Blank lines are skipped.
func ReadLabels(r io.Reader) ([]Box, error) {
	boxes := []Box{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		b, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		boxes = append(boxes, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return boxes, nil
}

// ReadLabelFile reads a label file from disk
func ReadLabelFile(filename string) ([]Box, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f)
}

// WriteLabels writes one line per box
func WriteLabels(w io.Writer, boxes []Box) error {
	bw := bufio.NewWriter(w)
	for _, b := range boxes {
		if _, err := bw.WriteString(b.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
