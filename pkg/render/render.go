// Package render draws detection boxes onto images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"nuyolo/pkg/yolo"
)

// Palette is cycled through by class index
var Palette = []color.RGBA{
	{255, 56, 56, 255},
	{255, 157, 151, 255},
	{255, 112, 31, 255},
	{255, 178, 29, 255},
	{207, 210, 49, 255},
	{72, 249, 10, 255},
	{146, 204, 23, 255},
	{61, 219, 134, 255},
	{26, 147, 52, 255},
	{0, 212, 187, 255},
	{44, 153, 168, 255},
	{0, 194, 255, 255},
	{52, 69, 147, 255},
	{100, 115, 255, 255},
	{0, 24, 236, 255},
	{132, 56, 255, 255},
	{82, 0, 133, 255},
	{203, 56, 255, 255},
	{255, 149, 200, 255},
	{255, 55, 199, 255},
}

type Options struct {
	LineWidth float64
	Labels    bool     // Draw class name (or index) above each box
	Classes   []string // Optional class names, by index
}

func DefaultOptions() Options {
	return Options{
		LineWidth: 2,
		Labels:    true,
	}
}

// Boxes returns a copy of img with the boxes drawn on top.
func Boxes(img image.Image, boxes []yolo.Box, opt Options) image.Image {
	dc := gg.NewContextForImage(img)
	b := img.Bounds()
	if opt.LineWidth <= 0 {
		opt.LineWidth = 1
	}
	dc.SetLineWidth(opt.LineWidth)
	for _, box := range boxes {
		r := box.Rect(b.Dx(), b.Dy())
		c := ClassColor(box.Class)
		dc.SetColor(c)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
		if opt.Labels {
			label := className(opt.Classes, box.Class)
			if box.HasConfidence {
				label = fmt.Sprintf("%v %.2f", label, box.Confidence)
			}
			tw, th := dc.MeasureString(label)
			x := float64(r.Min.X)
			y := float64(r.Min.Y)
			if y < th+4 {
				y = th + 4
			}
			dc.DrawRectangle(x, y-th-4, tw+4, th+4)
			dc.Fill()
			dc.SetColor(color.White)
			dc.DrawString(label, x+2, y-2)
		}
	}
	return dc.Image()
}

func ClassColor(class int) color.RGBA {
	i := class % len(Palette)
	if i < 0 {
		i += len(Palette)
	}
	return Palette[i]
}

func className(classes []string, class int) string {
	if class >= 0 && class < len(classes) {
		return classes[class]
	}
	return fmt.Sprintf("%v", class)
}
